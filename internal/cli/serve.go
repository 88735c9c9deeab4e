package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andreyvit/redisrec"
	"github.com/andreyvit/redisrec/internal/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve record tables over a JSON HTTP API",
		Long: `Serve record tables over a JSON HTTP API until interrupted.

Any table name is served; attribute kinds come from the config file and
the --pk/--attr flags.

Example:
  redisrec serve --addr :8080 --prefix prod`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	addr := opts.Addr
	if addr == "" {
		addr = s.cfg.HTTP.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := httpapi.NewServer(s.drv, func(table string) (redisrec.Classifier, error) {
		return s.schema(table)
	}, addr)

	slog.Info("serving", "addr", addr, "backend", s.cfg.Backend.Kind)
	if err := srv.Run(ctx); err != nil {
		return WrapExitError(ExitCommandError, "serve", err)
	}
	slog.Info("stopped")
	return nil
}
