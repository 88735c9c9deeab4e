package redisrec

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const scanPageSize = 500

type redisStorage struct {
	rdb   redis.UniversalClient
	owned bool
}

// NewRedisStorage wraps an existing go-redis client. Close on the result does
// not close rdb; the caller keeps ownership.
func NewRedisStorage(rdb redis.UniversalClient) Storage {
	return &redisStorage{rdb: rdb}
}

func newOwnedRedisStorage(rdb redis.UniversalClient) Storage {
	return &redisStorage{rdb: rdb, owned: true}
}

// Client returns the go-redis client behind a Storage created by this
// package, or nil for other backends.
func Client(st Storage) redis.UniversalClient {
	if rs, ok := st.(*redisStorage); ok {
		return rs.rdb
	}
	return nil
}

func (s *redisStorage) Incr(ctx context.Context, key string) (int64, error) {
	return s.rdb.Incr(ctx, key).Result()
}

func (s *redisStorage) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.rdb.HSet(ctx, key, hsetArgs(fields)...).Err()
}

func hsetArgs(fields map[string]string) []any {
	args := make([]any, 0, 2*len(fields))
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

func (s *redisStorage) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, key).Result()
}

func (s *redisStorage) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = p.HGetAll(ctx, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result := make([]map[string]string, len(keys))
	for i, cmd := range cmds {
		result[i] = cmd.Val()
	}
	return result, nil
}

func (s *redisStorage) Del(ctx context.Context, key string) (int64, error) {
	return s.rdb.Del(ctx, key).Result()
}

func (s *redisStorage) ZAdd(ctx context.Context, key string, id int64) error {
	return s.rdb.ZAdd(ctx, key, redis.Z{Score: float64(id), Member: id}).Err()
}

func (s *redisStorage) ZRem(ctx context.Context, key string, id int64) (bool, error) {
	n, err := s.rdb.ZRem(ctx, key, id).Result()
	return n == 1, err
}

func (s *redisStorage) ZScore(ctx context.Context, key string, id int64) (bool, error) {
	err := s.rdb.ZScore(ctx, key, strconv.FormatInt(id, 10)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return err == nil, err
}

func (s *redisStorage) ZCard(ctx context.Context, key string) (int64, error) {
	return s.rdb.ZCard(ctx, key).Result()
}

func (s *redisStorage) ZRangeFrom(ctx context.Context, key string, lower int64, limit int) ([]int64, error) {
	members, err := s.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   strconv.FormatInt(lower, 10),
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i], err = strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s has non-integer member %q", ErrCorrupted, key, m)
		}
	}
	return ids, nil
}

func (s *redisStorage) ZRemDelMulti(ctx context.Context, indexKey string, ids []int64, keys []string) error {
	if len(ids) != len(keys) {
		panic("ZRemDelMulti: ids and keys differ in length")
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			p.ZRem(ctx, indexKey, id)
			p.Del(ctx, keys[i])
		}
		return nil
	})
	return err
}

func (s *redisStorage) ScanPrefix(ctx context.Context, prefix string, fn func(key string) error) error {
	it := s.rdb.Scan(ctx, 0, escapeGlob(prefix)+"*", scanPageSize).Iterator()
	for it.Next(ctx) {
		if err := fn(it.Val()); err != nil {
			return err
		}
	}
	return it.Err()
}

func (s *redisStorage) FlushDB(ctx context.Context) error {
	return s.rdb.FlushDB(ctx).Err()
}

func (s *redisStorage) Close() error {
	if !s.owned {
		return nil
	}
	return s.rdb.Close()
}

func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var buf strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			buf.WriteByte('\\')
		}
		buf.WriteRune(r)
	}
	return buf.String()
}
