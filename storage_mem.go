package redisrec

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/zhangyunhao116/skipmap"
)

type memSet = skipmap.FuncMap[int64, struct{}]

func newMemSet() *memSet {
	return skipmap.NewFunc[int64, struct{}](func(a, b int64) bool {
		return a < b
	})
}

type memStorage struct {
	mu       sync.Mutex
	counters map[string]int64
	hashes   map[string]map[string]string
	zsets    map[string]*memSet
	closed   bool
}

// NewMemStorage returns a transient in-process Storage, intended for tests
// and tools that do not need persistence.
func NewMemStorage() Storage {
	s := &memStorage{}
	s.reset()
	return s
}

func (s *memStorage) reset() {
	s.counters = make(map[string]int64)
	s.hashes = make(map[string]map[string]string)
	s.zsets = make(map[string]*memSet)
}

func (s *memStorage) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("redisrec: storage closed")
	}
	return nil
}

func (s *memStorage) Incr(ctx context.Context, key string) (int64, error) {
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

func (s *memStorage) HSet(ctx context.Context, key string, fields map[string]string) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if len(fields) == 0 {
		return nil
	}
	h := s.hashes[key]
	if h == nil {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	maps.Copy(h, fields)
	return nil
}

func (s *memStorage) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.hgetall(key), nil
}

func (s *memStorage) hgetall(key string) map[string]string {
	h := maps.Clone(s.hashes[key])
	if h == nil {
		h = make(map[string]string)
	}
	return h
}

func (s *memStorage) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	result := make([]map[string]string, len(keys))
	for i, key := range keys {
		result[i] = s.hgetall(key)
	}
	return result, nil
}

func (s *memStorage) Del(ctx context.Context, key string) (int64, error) {
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	return s.del(key), nil
}

func (s *memStorage) del(key string) int64 {
	if _, ok := s.counters[key]; ok {
		delete(s.counters, key)
		return 1
	}
	if _, ok := s.hashes[key]; ok {
		delete(s.hashes, key)
		return 1
	}
	if _, ok := s.zsets[key]; ok {
		delete(s.zsets, key)
		return 1
	}
	return 0
}

func (s *memStorage) ZAdd(ctx context.Context, key string, id int64) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	set := s.zsets[key]
	if set == nil {
		set = newMemSet()
		s.zsets[key] = set
	}
	set.Store(id, struct{}{})
	return nil
}

func (s *memStorage) ZRem(ctx context.Context, key string, id int64) (bool, error) {
	if err := s.lock(ctx); err != nil {
		return false, err
	}
	defer s.mu.Unlock()
	return s.zrem(key, id), nil
}

func (s *memStorage) zrem(key string, id int64) bool {
	set := s.zsets[key]
	if set == nil {
		return false
	}
	if _, ok := set.Load(id); !ok {
		return false
	}
	set.Delete(id)
	if set.Len() == 0 {
		delete(s.zsets, key)
	}
	return true
}

func (s *memStorage) ZScore(ctx context.Context, key string, id int64) (bool, error) {
	if err := s.lock(ctx); err != nil {
		return false, err
	}
	defer s.mu.Unlock()
	set := s.zsets[key]
	if set == nil {
		return false, nil
	}
	_, ok := set.Load(id)
	return ok, nil
}

func (s *memStorage) ZCard(ctx context.Context, key string) (int64, error) {
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	set := s.zsets[key]
	if set == nil {
		return 0, nil
	}
	return int64(set.Len()), nil
}

func (s *memStorage) ZRangeFrom(ctx context.Context, key string, lower int64, limit int) ([]int64, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	set := s.zsets[key]
	if set == nil || limit <= 0 {
		return nil, nil
	}
	var ids []int64
	set.Range(func(id int64, _ struct{}) bool {
		if id >= lower {
			ids = append(ids, id)
		}
		return len(ids) < limit
	})
	return ids, nil
}

func (s *memStorage) ZRemDelMulti(ctx context.Context, indexKey string, ids []int64, keys []string) error {
	if len(ids) != len(keys) {
		panic("ZRemDelMulti: ids and keys differ in length")
	}
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	for i, id := range ids {
		s.zrem(indexKey, id)
		s.del(keys[i])
	}
	return nil
}

func (s *memStorage) ScanPrefix(ctx context.Context, prefix string, fn func(key string) error) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	var keys []string
	keys = appendPrefixed(keys, maps.Keys(s.counters), prefix)
	keys = appendPrefixed(keys, maps.Keys(s.hashes), prefix)
	keys = appendPrefixed(keys, maps.Keys(s.zsets), prefix)
	s.mu.Unlock()

	slices.Sort(keys)
	for _, key := range keys {
		if err := fn(key); err != nil {
			return err
		}
	}
	return nil
}

func appendPrefixed(keys []string, seq iter.Seq[string], prefix string) []string {
	for k := range seq {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *memStorage) FlushDB(ctx context.Context) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.reset()
	return nil
}

func (s *memStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.counters, s.hashes, s.zsets = nil, nil, nil
	return nil
}
