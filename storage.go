package redisrec

import "context"

// Storage is the set of key-value primitives tables are built from. The names
// follow the Redis commands they correspond to; other backends emulate the
// same semantics (a missing hash reads as empty, an empty sorted set ceases
// to exist, DEL removes a key of any type).
//
// Implementations must make each method atomic on its own. The *Multi methods
// exist so that backends with network round trips can pipeline them; they
// give no atomicity guarantee across keys.
type Storage interface {
	// Incr atomically increments the counter at key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// HSet merges fields into the hash at key, creating it if needed.
	HSet(ctx context.Context, key string, fields map[string]string) error

	// HGetAll returns all fields of the hash at key, or an empty map.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HGetAllMulti is HGetAll for several keys in one round trip.
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)

	// Del removes key and returns the number of keys removed (0 or 1).
	Del(ctx context.Context, key string) (int64, error)

	// ZAdd adds id to the sorted set at key, using id as its score.
	ZAdd(ctx context.Context, key string, id int64) error

	// ZRem removes id from the sorted set at key and reports whether it was there.
	ZRem(ctx context.Context, key string, id int64) (bool, error)

	// ZScore reports whether id is a member of the sorted set at key.
	ZScore(ctx context.Context, key string, id int64) (bool, error)

	// ZCard returns the number of members of the sorted set at key.
	ZCard(ctx context.Context, key string) (int64, error)

	// ZRangeFrom returns up to limit members with score >= lower, ascending.
	ZRangeFrom(ctx context.Context, key string, lower int64, limit int) ([]int64, error)

	// ZRemDelMulti removes each ids[i] from the sorted set at indexKey and
	// deletes keys[i], in that order, in one round trip.
	ZRemDelMulti(ctx context.Context, indexKey string, ids []int64, keys []string) error

	// ScanPrefix calls fn for every key that starts with prefix. Order is
	// unspecified; keys created or removed during the walk may or may not be seen.
	ScanPrefix(ctx context.Context, prefix string, fn func(key string) error) error

	// FlushDB removes every key.
	FlushDB(ctx context.Context) error

	Close() error
}
