package redisrec

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"time"
	"unsafe"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

var (
	boltCounters = []byte("counters")
	boltHashes   = []byte("hashes")
	boltZSets    = []byte("zsets")

	boltRoots = [][]byte{boltCounters, boltHashes, boltZSets}

	// value of every sorted set member; bbolt may return nil for empty values
	boltPresent = []byte{1}
)

// boltStorage emulates the Storage primitives inside a single Bolt file:
// counters and hashes are plain keys of their root buckets, each sorted set is
// a nested bucket of zsets whose keys are big-endian ids. Every primitive is
// one Bolt transaction; the *Multi methods use one transaction for the batch.
type boltStorage struct {
	bdb *bbolt.DB
}

type BoltOptions struct {
	IsTesting bool
	MmapSize  int
}

// OpenBoltStorage opens (creating if needed) a Bolt file to be used as a
// single-process Storage.
func OpenBoltStorage(path string, opt BoltOptions) (Storage, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, &bopt)
	if err != nil {
		return nil, fmt.Errorf("redisrec: bolt: %w", err)
	}
	err = bdb.Update(func(btx *bbolt.Tx) error {
		for _, name := range boltRoots {
			if _, err := btx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("redisrec: bolt: %w", err)
	}
	return &boltStorage{bdb: bdb}, nil
}

func (s *boltStorage) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.update(ctx, func(btx *bbolt.Tx) error {
		b := btx.Bucket(boltCounters)
		k := unsafeBytesFromString(key)
		if v := b.Get(k); v != nil {
			if len(v) != 8 {
				return fmt.Errorf("%w: counter %s has %d bytes", ErrCorrupted, key, len(v))
			}
			n = int64(binary.BigEndian.Uint64(v))
		}
		n++
		return b.Put([]byte(key), binary.BigEndian.AppendUint64(nil, uint64(n)))
	})
	return n, err
}

func (s *boltStorage) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.update(ctx, func(btx *bbolt.Tx) error {
		b := btx.Bucket(boltHashes)
		h, err := decodeBoltHash(key, b.Get(unsafeBytesFromString(key)))
		if err != nil {
			return err
		}
		for k, v := range fields {
			h[k] = v
		}
		raw, err := msgpack.Marshal(h)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), raw)
	})
}

func (s *boltStorage) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var h map[string]string
	err := s.view(ctx, func(btx *bbolt.Tx) error {
		var err error
		h, err = decodeBoltHash(key, btx.Bucket(boltHashes).Get(unsafeBytesFromString(key)))
		return err
	})
	return h, err
}

func (s *boltStorage) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	result := make([]map[string]string, len(keys))
	err := s.view(ctx, func(btx *bbolt.Tx) error {
		b := btx.Bucket(boltHashes)
		for i, key := range keys {
			var err error
			result[i], err = decodeBoltHash(key, b.Get(unsafeBytesFromString(key)))
			if err != nil {
				return err
			}
		}
		return nil
	})
	return result, err
}

func decodeBoltHash(key string, raw []byte) (map[string]string, error) {
	h := make(map[string]string)
	if raw == nil {
		return h, nil
	}
	if err := msgpack.Unmarshal(raw, &h); err != nil {
		return nil, dataErrf(key, "", string(raw), err, "cannot decode msgpack hash")
	}
	return h, nil
}

func (s *boltStorage) Del(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.update(ctx, func(btx *bbolt.Tx) error {
		var err error
		n, err = boltDel(btx, key)
		return err
	})
	return n, err
}

func boltDel(btx *bbolt.Tx, key string) (int64, error) {
	k := unsafeBytesFromString(key)
	for _, name := range [][]byte{boltCounters, boltHashes} {
		b := btx.Bucket(name)
		if b.Get(k) != nil {
			return 1, b.Delete(k)
		}
	}
	zsets := btx.Bucket(boltZSets)
	if zsets.Bucket(k) != nil {
		return 1, zsets.DeleteBucket(k)
	}
	return 0, nil
}

func (s *boltStorage) ZAdd(ctx context.Context, key string, id int64) error {
	member, err := boltMember(id)
	if err != nil {
		return err
	}
	return s.update(ctx, func(btx *bbolt.Tx) error {
		set, err := btx.Bucket(boltZSets).CreateBucketIfNotExists([]byte(key))
		if err != nil {
			return err
		}
		return set.Put(member, boltPresent)
	})
}

func (s *boltStorage) ZRem(ctx context.Context, key string, id int64) (bool, error) {
	member, err := boltMember(id)
	if err != nil {
		return false, err
	}
	var removed bool
	err = s.update(ctx, func(btx *bbolt.Tx) error {
		var err error
		removed, err = boltZRem(btx, key, member)
		return err
	})
	return removed, err
}

func boltZRem(btx *bbolt.Tx, key string, member []byte) (bool, error) {
	zsets := btx.Bucket(boltZSets)
	set := zsets.Bucket(unsafeBytesFromString(key))
	if set == nil || set.Get(member) == nil {
		return false, nil
	}
	if err := set.Delete(member); err != nil {
		return false, err
	}
	if k, _ := set.Cursor().First(); k == nil {
		if err := zsets.DeleteBucket([]byte(key)); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *boltStorage) ZScore(ctx context.Context, key string, id int64) (bool, error) {
	member, err := boltMember(id)
	if err != nil {
		return false, nil
	}
	var found bool
	err = s.view(ctx, func(btx *bbolt.Tx) error {
		set := btx.Bucket(boltZSets).Bucket(unsafeBytesFromString(key))
		found = set != nil && set.Get(member) != nil
		return nil
	})
	return found, err
}

func (s *boltStorage) ZCard(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.view(ctx, func(btx *bbolt.Tx) error {
		if set := btx.Bucket(boltZSets).Bucket(unsafeBytesFromString(key)); set != nil {
			n = int64(set.Stats().KeyN)
		}
		return nil
	})
	return n, err
}

func (s *boltStorage) ZRangeFrom(ctx context.Context, key string, lower int64, limit int) ([]int64, error) {
	if lower < 0 {
		lower = 0
	}
	var ids []int64
	err := s.view(ctx, func(btx *bbolt.Tx) error {
		set := btx.Bucket(boltZSets).Bucket(unsafeBytesFromString(key))
		if set == nil {
			return nil
		}
		c := set.Cursor()
		for k, _ := c.Seek(binary.BigEndian.AppendUint64(nil, uint64(lower))); k != nil && len(ids) < limit; k, _ = c.Next() {
			if len(k) != 8 {
				return fmt.Errorf("%w: %s has malformed member %x", ErrCorrupted, key, k)
			}
			ids = append(ids, int64(binary.BigEndian.Uint64(k)))
		}
		return nil
	})
	return ids, err
}

func (s *boltStorage) ZRemDelMulti(ctx context.Context, indexKey string, ids []int64, keys []string) error {
	if len(ids) != len(keys) {
		panic("ZRemDelMulti: ids and keys differ in length")
	}
	return s.update(ctx, func(btx *bbolt.Tx) error {
		for i, id := range ids {
			member, err := boltMember(id)
			if err != nil {
				return err
			}
			if _, err := boltZRem(btx, indexKey, member); err != nil {
				return err
			}
			if _, err := boltDel(btx, keys[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *boltStorage) ScanPrefix(ctx context.Context, prefix string, fn func(key string) error) error {
	var keys []string
	err := s.view(ctx, func(btx *bbolt.Tx) error {
		p := []byte(prefix)
		for _, name := range boltRoots {
			c := btx.Bucket(name).Cursor()
			for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
				keys = append(keys, string(k))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := fn(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *boltStorage) FlushDB(ctx context.Context) error {
	return s.update(ctx, func(btx *bbolt.Tx) error {
		for _, name := range boltRoots {
			if err := btx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := btx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *boltStorage) Close() error {
	return s.bdb.Close()
}

func (s *boltStorage) update(ctx context.Context, f func(btx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.bdb.Update(f)
}

func (s *boltStorage) view(ctx context.Context, f func(btx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.bdb.View(f)
}

func boltMember(id int64) ([]byte, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: %d is negative", ErrInvalidID, id)
	}
	return binary.BigEndian.AppendUint64(nil, uint64(id)), nil
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
