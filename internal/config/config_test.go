package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/redisrec"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "redisrec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
backend:
  kind: bolt
  path: /tmp/records.db
redis:
  credentials:
    host: cache.internal
    port: 6380
    db: 3
prefix: [prod, tenant42]
tables:
  - name: users
    attributes:
      email: string
      age: integer
      prefs: json
logger:
  level: debug
  json: true
http:
  addr: 127.0.0.1:9000
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendBolt, cfg.Backend.Kind)
	assert.Equal(t, "/tmp/records.db", cfg.Backend.Path)
	require.NotNil(t, cfg.Redis.Credentials)
	assert.Equal(t, redisrec.Credentials{Host: "cache.internal", Port: 6380, DB: 3}, *cfg.Redis.Credentials)
	assert.Equal(t, []string{"prod", "tenant42"}, cfg.Prefix)
	assert.True(t, cfg.Logger.JSON)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)

	scm, err := cfg.Table("users").Schema()
	require.NoError(t, err)
	assert.Equal(t, "id", scm.PrimaryKey())
	assert.ElementsMatch(t, []redisrec.Attribute{
		{Name: "id", Kind: redisrec.Integer},
		{Name: "email", Kind: redisrec.String},
		{Name: "age", Kind: redisrec.Integer},
		{Name: "prefs", Kind: redisrec.Structured},
	}, scm.Attributes())
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "prefix: [dev]\n"))
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Backend.Kind)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"dev"}, cfg.Prefix)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"syntax":        "backend: [",
		"unknown kind":  "backend:\n  kind: etcd\n",
		"bolt no path":  "backend:\n  kind: bolt\n",
		"bad level":     "logger:\n  level: loud\n",
		"bad attr kind": "tables:\n  - name: users\n    attributes:\n      x: blob\n",
		"duplicate":     "tables:\n  - name: users\n  - name: users\n",
		"unnamed table": "tables:\n  - primary_key: id\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestTableDefaults(t *testing.T) {
	cfg := Default()
	tc := cfg.Table("posts")
	assert.Equal(t, "posts", tc.Name)
	scm, err := tc.Schema()
	require.NoError(t, err)
	assert.Equal(t, "id", scm.PrimaryKey())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cfg := Default()
		cfg.Backend.Kind = BackendMemory
		drv, err := cfg.Open(t.Logf)
		require.NoError(t, err)
		defer drv.Close()
		users, err := drv.Table("users", redisrec.NewSchema("id"))
		require.NoError(t, err)
		_, err = users.Insert(ctx, redisrec.Record{})
		require.NoError(t, err)
	})

	t.Run("bolt", func(t *testing.T) {
		cfg := Default()
		cfg.Backend = BackendConfig{Kind: BackendBolt, Path: filepath.Join(t.TempDir(), "r.db")}
		drv, err := cfg.Open(t.Logf)
		require.NoError(t, err)
		defer drv.Close()
	})

	t.Run("redis url", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := Default()
		cfg.Redis.URL = "redis://" + mr.Addr()
		cfg.Prefix = []string{"app"}
		drv, err := cfg.Open(t.Logf)
		require.NoError(t, err)
		defer drv.Close()

		users, err := drv.Table("users", redisrec.NewSchema("id"))
		require.NoError(t, err)
		_, err = users.Insert(ctx, redisrec.Record{})
		require.NoError(t, err)
		assert.True(t, mr.Exists("app:users:1"))
	})

	t.Run("no url", func(t *testing.T) {
		require.NoError(t, redisrec.ResetDefault(ctx))
		t.Setenv(redisrec.RedisURLEnv, "")
		cfg := Default()
		_, err := cfg.Open(t.Logf)
		assert.ErrorIs(t, err, redisrec.ErrNoRedisURL)
	})
}
