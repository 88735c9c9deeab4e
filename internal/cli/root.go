package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	URL        string
	Backend    string
	Path       string
	Prefix     []string
	PrimaryKey string
	Attrs      []string // name:kind
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the redisrec CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "redisrec",
		Short: "Inspect and edit record tables stored in Redis",
		Long: `Inspect and edit record tables stored in Redis (or a Bolt file).

Every table is a sequence counter <table>$sequence, a sorted set <table>$all
of live ids and one hash <table>:<id> per record, all under an optional
colon-separated key prefix.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "redisrec.yaml", "config file")
	cmd.PersistentFlags().StringVar(&opts.URL, "url", "", "redis:// URL (overrides the config file and REDIS_URL)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend (redis|bolt|memory)")
	cmd.PersistentFlags().StringVar(&opts.Path, "path", "", "Bolt file, for --backend bolt")
	cmd.PersistentFlags().StringSliceVar(&opts.Prefix, "prefix", nil, "key prefix segments, e.g. --prefix prod,tenant42")
	cmd.PersistentFlags().StringVar(&opts.PrimaryKey, "pk", "", "primary key attribute (default from config, or id)")
	cmd.PersistentFlags().StringArrayVar(&opts.Attrs, "attr", nil, "declare an attribute kind, e.g. --attr age:integer")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewTruncateCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}
