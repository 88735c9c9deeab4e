package redisrec

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisURLEnv names the environment variable Default reads.
const RedisURLEnv = "REDIS_URL"

// Credentials is the structured alternative to a connection URL.
type Credentials struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func (c Credentials) redisOptions() *redis.Options {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 6379
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		DB:       c.DB,
		Username: c.Username,
		Password: c.Password,
	}
}

// NewRedis returns a driver over an existing go-redis client. Closing the
// driver does not close the client.
func NewRedis(rdb redis.UniversalClient, opt Options) *Driver {
	return New(NewRedisStorage(rdb), opt)
}

// Dial returns a driver over a new client for a redis:// or rediss:// URL.
// Like go-redis itself, it does not connect until the first command.
func Dial(url string, opt Options) (*Driver, error) {
	ropt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisrec: %w", err)
	}
	return New(newOwnedRedisStorage(redis.NewClient(ropt)), opt), nil
}

// DialCredentials returns a driver over a new client for the given
// credentials. Host defaults to localhost and port to 6379.
func DialCredentials(c Credentials, opt Options) (*Driver, error) {
	return New(newOwnedRedisStorage(redis.NewClient(c.redisOptions())), opt), nil
}

var (
	defaultMu  sync.Mutex
	defaultRDB *redis.Client
)

// Default returns a driver over the process-wide shared client, creating it
// from REDIS_URL on first use. It fails with ErrNoRedisURL if the variable is
// unset and no client was installed with SetDefaultClient.
func Default(opt Options) (*Driver, error) {
	rdb, err := DefaultClient()
	if err != nil {
		return nil, err
	}
	return NewRedis(rdb, opt), nil
}

func DefaultClient() (*redis.Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRDB != nil {
		return defaultRDB, nil
	}
	url := os.Getenv(RedisURLEnv)
	if url == "" {
		return nil, ErrNoRedisURL
	}
	ropt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisrec: %s: %w", RedisURLEnv, err)
	}
	defaultRDB = redis.NewClient(ropt)
	return defaultRDB, nil
}

// SetDefaultClient installs the shared client returned by DefaultClient.
func SetDefaultClient(rdb *redis.Client) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRDB = rdb
}

// ResetDefault flushes the shared client's database, closes the client and
// forgets it, so that the next Default call starts over. It is a no-op if no
// shared client exists. Intended for test teardown.
func ResetDefault(ctx context.Context) error {
	defaultMu.Lock()
	rdb := defaultRDB
	defaultRDB = nil
	defaultMu.Unlock()
	if rdb == nil {
		return nil
	}
	err := rdb.FlushDB(ctx).Err()
	if cerr := rdb.Close(); err == nil {
		err = cerr
	}
	return err
}
