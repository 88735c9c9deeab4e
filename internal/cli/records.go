package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andreyvit/redisrec"
)

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "count <table>",
		Short:         "Print the number of records in a table",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(rootOpts, cmd, args[0], func(s *session, tbl *redisrec.Table) error {
				n, err := tbl.Count(cmd.Context())
				if err != nil {
					return s.out.Fail(err)
				}
				return s.out.Success(n)
			})
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <table> <id>...",
		Short:         "Print records by id",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(rootOpts, cmd, args[0], func(s *session, tbl *redisrec.Table) error {
				var recs []redisrec.Record
				for _, arg := range args[1:] {
					id, err := parseID(arg)
					if err != nil {
						return s.out.Fail(err)
					}
					rec, err := tbl.MustFind(cmd.Context(), id)
					if err != nil {
						return s.out.Fail(err)
					}
					recs = append(recs, rec)
				}
				return s.out.Records(recs...)
			})
		},
	}
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <table>",
		Short: "Print every record of a table",
		Long: `Print every record of a table in id order.

In text format the listing also reports records that fail to decode and
orphaned record bodies; in json format it is the list of records.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(rootOpts, cmd, args[0], func(s *session, tbl *redisrec.Table) error {
				if s.out.Format == "json" {
					recs, err := tbl.AllRecords(cmd.Context())
					if err != nil {
						return s.out.Fail(err)
					}
					if recs == nil {
						recs = []redisrec.Record{}
					}
					return s.out.Success(recs)
				}
				if err := tbl.Dump(cmd.Context(), s.out.Writer, redisrec.DumpAll); err != nil {
					return s.out.Fail(err)
				}
				return nil
			})
		},
	}
}

type writeOptions struct {
	JSON string
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &writeOptions{}
	cmd := &cobra.Command{
		Use:   "insert <table> [attr=value...]",
		Short: "Insert a record and print it",
		Long: `Insert a record and print it as stored.

Attributes are given as attr=value pairs and/or as a JSON object with --json;
pairs override JSON. The id is allocated from the table's sequence unless the
primary key is given explicitly.

Example:
  redisrec insert users email=foo@example.com age=42
  redisrec insert users --json '{"id": 101, "prefs": {"theme": "dark"}}'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(rootOpts, cmd, args[0], func(s *session, tbl *redisrec.Table) error {
				attrs, err := parseAttrs(opts.JSON, args[1:])
				if err != nil {
					return s.out.Fail(err)
				}
				rec, err := tbl.Insert(cmd.Context(), attrs)
				if err != nil {
					return s.out.Fail(err)
				}
				return s.out.Records(rec)
			})
		},
	}
	cmd.Flags().StringVar(&opts.JSON, "json", "", "attributes as a JSON object")
	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &writeOptions{}
	cmd := &cobra.Command{
		Use:           "update <table> <id> [attr=value...]",
		Short:         "Change attributes of an existing record and print it",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(rootOpts, cmd, args[0], func(s *session, tbl *redisrec.Table) error {
				id, err := parseID(args[1])
				if err != nil {
					return s.out.Fail(err)
				}
				attrs, err := parseAttrs(opts.JSON, args[2:])
				if err != nil {
					return s.out.Fail(err)
				}
				attrs[tbl.PrimaryKey()] = id
				rec, err := tbl.Update(cmd.Context(), attrs)
				if err != nil {
					return s.out.Fail(err)
				}
				return s.out.Records(rec)
			})
		},
	}
	cmd.Flags().StringVar(&opts.JSON, "json", "", "attributes as a JSON object")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <table> <id>...",
		Short:         "Delete records by id",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(rootOpts, cmd, args[0], func(s *session, tbl *redisrec.Table) error {
				var deleted []int64
				for _, arg := range args[1:] {
					id, err := parseID(arg)
					if err != nil {
						return s.out.Fail(err)
					}
					if err := tbl.HardDelete(cmd.Context(), id); err != nil {
						return s.out.Fail(err)
					}
					s.out.VerboseLog("Deleted %s/%d", tbl.Name(), id)
					deleted = append(deleted, id)
				}
				if s.out.Format == "json" {
					return s.out.Success(deleted)
				}
				return s.out.Success(fmt.Sprintf("deleted %d record(s)", len(deleted)))
			})
		},
	}
}

// NewTruncateCommand creates the truncate command.
func NewTruncateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "truncate <table>",
		Short: "Delete every record of a table",
		Long: `Delete every record of a table, in batches.

The sequence counter is kept, so ids are not reused. If interrupted, run it
again to finish.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(rootOpts, cmd, args[0], func(s *session, tbl *redisrec.Table) error {
				n, err := tbl.HardDeleteAll(cmd.Context())
				if err != nil {
					return s.out.Fail(err)
				}
				if s.out.Format == "json" {
					return s.out.Success(n)
				}
				return s.out.Success(fmt.Sprintf("deleted %d record(s)", n))
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q", redisrec.ErrInvalidID, s)
	}
	return id, nil
}

// parseAttrs builds a record from an optional JSON object and attr=value
// pairs. Pair values are strings; the table converts them to the declared
// attribute kinds.
func parseAttrs(jsonAttrs string, pairs []string) (redisrec.Record, error) {
	attrs := make(redisrec.Record)
	if jsonAttrs != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(jsonAttrs)))
		dec.UseNumber()
		if err := dec.Decode(&attrs); err != nil {
			return nil, fmt.Errorf("%w: --json: %v", redisrec.ErrInvalidValue, err)
		}
		if attrs == nil {
			return nil, fmt.Errorf("%w: --json must be an object", redisrec.ErrInvalidValue)
		}
	}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q is not attr=value", redisrec.ErrInvalidValue, pair)
		}
		attrs[name] = value
	}
	return attrs, nil
}
