package redisrec

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisKeyLayout(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	drv := NewRedis(rdb, Options{Prefix: []string{"app"}})
	users := must(drv.Table("users", usersSchema))
	must(users.Insert(ctx, Record{"email": "foo@example.com", "prefs": map[string]any{"a": 1}}))
	must(users.Insert(ctx, Record{"id": 10, "admin": true}))

	deepEqual(t, must(mr.Get("app:users$sequence")), "1")
	deepEqual(t, must(mr.ZMembers("app:users$all")), []string{"1", "10"})
	deepEqual(t, mr.HGet("app:users:1", "id"), "1")
	deepEqual(t, mr.HGet("app:users:1", "email"), "foo@example.com")
	deepEqual(t, mr.HGet("app:users:1", "prefs"), `{"a":1}`)
	deepEqual(t, mr.HGet("app:users:10", "admin"), "true")

	score := must(mr.ZScore("app:users$all", "10"))
	deepEqual(t, score, float64(10))

	ok(t, users.HardDelete(ctx, 10))
	deepEqual(t, mr.Exists("app:users:10"), false)
	deepEqual(t, must(mr.ZMembers("app:users$all")), []string{"1"})

	// closing a driver over a caller's client leaves the client usable
	ok(t, drv.Close())
	ok(t, rdb.Ping(ctx).Err())
}

func TestRedisDeleteAllPipelines(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	users := must(NewRedis(rdb, Options{}).Table("users", usersSchema))
	for range 75 {
		must(users.Insert(ctx, Record{}))
	}
	deepEqual(t, must(users.HardDeleteAll(ctx)), 75)
	deepEqual(t, mr.Exists("users$all"), false)
	deepEqual(t, mr.Exists("users:1"), false)
	deepEqual(t, mr.Exists("users$sequence"), true)
}

func TestDefault(t *testing.T) {
	ctx := context.Background()
	ok(t, ResetDefault(ctx))

	t.Setenv(RedisURLEnv, "")
	_, err := Default(Options{})
	isErr(t, err, ErrNoRedisURL)

	mr := miniredis.RunT(t)
	t.Setenv(RedisURLEnv, "redis://"+mr.Addr())
	drv := must(Default(Options{}))
	t.Cleanup(func() { ResetDefault(context.Background()) })

	users := must(drv.Table("users", usersSchema))
	must(users.Insert(ctx, Record{"email": "foo@example.com"}))
	deepEqual(t, mr.HGet("users:1", "email"), "foo@example.com")

	// a second driver shares the client
	other := must(Default(Options{}))
	if Client(other.Storage()) != Client(drv.Storage()) {
		t.Errorf("Default returned a new client")
	}

	ok(t, ResetDefault(ctx))
	deepEqual(t, mr.Exists("users:1"), false)
}

func TestDefaultBadURL(t *testing.T) {
	ok(t, ResetDefault(context.Background()))
	t.Setenv(RedisURLEnv, "http://example.com")
	_, err := Default(Options{})
	if err == nil {
		t.Fatalf("Default with a bad URL succeeded")
	}
}

func TestDialCredentials(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	port := must(strconv.Atoi(mr.Port()))

	drv := must(DialCredentials(Credentials{Host: mr.Host(), Port: port}, Options{}))
	t.Cleanup(func() { drv.Close() })
	users := must(drv.Table("users", usersSchema))
	must(users.Insert(ctx, Record{}))
	deepEqual(t, mr.Exists("users:1"), true)

	drv2 := must(Dial("redis://"+mr.Addr()+"/0", Options{}))
	t.Cleanup(func() { drv2.Close() })
	users2 := must(drv2.Table("users", usersSchema))
	deepEqual(t, must(users2.Count(ctx)), int64(1))
}

func TestCredentialsDefaults(t *testing.T) {
	opt := Credentials{}.redisOptions()
	deepEqual(t, opt.Addr, "localhost:6379")
	opt = Credentials{Host: "redis.internal", Port: 6380, DB: 2}.redisOptions()
	deepEqual(t, opt.Addr, "redis.internal:6380")
	deepEqual(t, opt.DB, 2)
}
