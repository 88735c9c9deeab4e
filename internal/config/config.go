package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/andreyvit/redisrec"
)

// Backend kinds.
const (
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Config is the configuration shared by the command-line tool and the HTTP
// server.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Redis   RedisConfig   `yaml:"redis"`
	Prefix  []string      `yaml:"prefix"`
	Tables  []TableConfig `yaml:"tables"`
	Logger  LoggerConfig  `yaml:"logger"`
	HTTP    HTTPConfig    `yaml:"http"`
}

type BackendConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"` // Bolt file, for kind "bolt"
}

// RedisConfig selects the server. URL wins over Credentials; with neither,
// REDIS_URL is used.
type RedisConfig struct {
	URL         string                `yaml:"url"`
	Credentials *redisrec.Credentials `yaml:"credentials"`
}

// TableConfig declares a table's primary key and attribute kinds, so that
// values read back have their declared types.
type TableConfig struct {
	Name       string            `yaml:"name"`
	PrimaryKey string            `yaml:"primary_key"`
	Attributes map[string]string `yaml:"attributes"` // name => kind
}

type LoggerConfig struct {
	Level   string `yaml:"level"`
	JSON    bool   `yaml:"json"`
	Verbose bool   `yaml:"verbose"` // log every table operation
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Backend: BackendConfig{Kind: BackendRedis},
		Logger:  LoggerConfig{Level: "INFO"},
		HTTP:    HTTPConfig{Addr: ":8080"},
	}
}

// Load reads a YAML config file over Default. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("config file not found, using default config", "path", path)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	switch cfg.Backend.Kind {
	case BackendRedis, BackendMemory:
	case BackendBolt:
		if cfg.Backend.Path == "" {
			return errors.New("backend.path is required for the bolt backend")
		}
	default:
		return fmt.Errorf("unknown backend.kind %q", cfg.Backend.Kind)
	}
	if _, err := ParseLevel(cfg.Logger.Level); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, tc := range cfg.Tables {
		if tc.Name == "" {
			return errors.New("tables: name is required")
		}
		if seen[tc.Name] {
			return fmt.Errorf("tables: duplicate table %q", tc.Name)
		}
		seen[tc.Name] = true
		if _, err := tc.Schema(); err != nil {
			return fmt.Errorf("tables.%s: %w", tc.Name, err)
		}
	}
	return nil
}

// Table returns the declared table config, or a config with just the name
// and the default primary key "id".
func (cfg *Config) Table(name string) TableConfig {
	for _, tc := range cfg.Tables {
		if tc.Name == name {
			return tc
		}
	}
	return TableConfig{Name: name}
}

// Schema builds the table's classifier. The primary key defaults to "id".
func (tc TableConfig) Schema() (*redisrec.Schema, error) {
	pk := tc.PrimaryKey
	if pk == "" {
		pk = "id"
	}
	scm := redisrec.NewSchema(pk)
	for name, kindName := range tc.Attributes {
		if name == pk {
			continue
		}
		kind, err := redisrec.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		scm.Attr(name, kind)
	}
	return scm, nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown logger.level %q", s)
	}
}

// Open connects to the configured backend.
func (cfg *Config) Open(logf func(format string, args ...any)) (*redisrec.Driver, error) {
	opt := redisrec.Options{
		Prefix:  cfg.Prefix,
		Logf:    logf,
		Verbose: cfg.Logger.Verbose,
	}
	switch cfg.Backend.Kind {
	case BackendMemory:
		return redisrec.NewMemory(opt), nil
	case BackendBolt:
		return redisrec.OpenBolt(cfg.Backend.Path, opt)
	case BackendRedis, "":
		switch {
		case cfg.Redis.URL != "":
			return redisrec.Dial(cfg.Redis.URL, opt)
		case cfg.Redis.Credentials != nil:
			return redisrec.DialCredentials(*cfg.Redis.Credentials, opt)
		default:
			return redisrec.Default(opt)
		}
	default:
		return nil, fmt.Errorf("unknown backend.kind %q", cfg.Backend.Kind)
	}
}
