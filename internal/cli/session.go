package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andreyvit/redisrec"
	"github.com/andreyvit/redisrec/internal/config"
)

// session is what every command works with: the loaded config, an open
// driver and the output formatter.
type session struct {
	opts *RootOptions
	cfg  config.Config
	drv  *redisrec.Driver
	out  *OutputFormatter
}

func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error())
		return nil, WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}
	initLogger(&cfg, cmd.ErrOrStderr())

	drv, err := cfg.Open(nil)
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error())
		return nil, WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}
	out.VerboseLog("Opened %s backend, prefix %q", cfg.Backend.Kind, strings.Join(cfg.Prefix, ":"))
	return &session{opts: opts, cfg: cfg, drv: drv, out: out}, nil
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if opts.URL != "" {
		cfg.Backend.Kind = config.BackendRedis
		cfg.Redis.URL = opts.URL
	}
	if opts.Backend != "" {
		cfg.Backend.Kind = opts.Backend
	}
	if opts.Path != "" {
		cfg.Backend.Path = opts.Path
	}
	if opts.Prefix != nil {
		cfg.Prefix = opts.Prefix
	}
	if opts.Verbose {
		cfg.Logger.Level = "DEBUG"
		cfg.Logger.Verbose = true
	}
	return cfg, cfg.Validate()
}

// initLogger configures the global slog.Logger (JSON or text).
func initLogger(cfg *config.Config, w io.Writer) {
	level, err := config.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	var handler slog.Handler
	if cfg.Logger.JSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// schema merges the config file's declaration of a table with --pk and --attr.
func (s *session) schema(name string) (redisrec.Classifier, error) {
	tc := s.cfg.Table(name)
	if s.opts.PrimaryKey != "" {
		tc.PrimaryKey = s.opts.PrimaryKey
	}
	if len(s.opts.Attrs) > 0 {
		attrs := make(map[string]string, len(tc.Attributes)+len(s.opts.Attrs))
		for k, v := range tc.Attributes {
			attrs[k] = v
		}
		for _, a := range s.opts.Attrs {
			attr, kind, ok := strings.Cut(a, ":")
			if !ok || attr == "" {
				return nil, fmt.Errorf("invalid --attr %q: want name:kind", a)
			}
			attrs[attr] = kind
		}
		tc.Attributes = attrs
	}
	return tc.Schema()
}

func (s *session) table(name string) (*redisrec.Table, error) {
	cls, err := s.schema(name)
	if err != nil {
		_ = s.out.Error(ErrCodeInvalid, err.Error())
		return nil, WrapExitError(ExitCommandError, ErrCodeInvalid, err)
	}
	tbl, err := s.drv.Table(name, cls)
	if err != nil {
		_ = s.out.Error(ErrCodeInvalid, err.Error())
		return nil, WrapExitError(ExitCommandError, ErrCodeInvalid, err)
	}
	return tbl, nil
}

func (s *session) Close() {
	if err := s.drv.Close(); err != nil {
		slog.Warn("closing storage", "error", err)
	}
}

// withTable opens a session and the named table, runs f and closes the session.
func withTable(opts *RootOptions, cmd *cobra.Command, name string, f func(s *session, tbl *redisrec.Table) error) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	tbl, err := s.table(name)
	if err != nil {
		return err
	}
	return f(s, tbl)
}
