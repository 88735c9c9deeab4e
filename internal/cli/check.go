package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andreyvit/redisrec"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Sweep bool
}

// CheckResult is the json output of the check command.
type CheckResult struct {
	Records int64   `json:"records"`
	Orphans []int64 `json:"orphans"`
	Swept   bool    `json:"swept"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <table>",
		Short: "Find record bodies missing from the primary key index",
		Long: `Find record bodies missing from the primary key index.

Such orphans are left behind when an insert or delete is interrupted between
its two writes. They are invisible to reads; --sweep deletes them. Only sweep
while no writers are running.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTable(rootOpts, cmd, args[0], func(s *session, tbl *redisrec.Table) error {
				return runCheck(opts, s, tbl, cmd)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Sweep, "sweep", false, "delete orphaned record bodies")

	return cmd
}

func runCheck(opts *CheckOptions, s *session, tbl *redisrec.Table, cmd *cobra.Command) error {
	ctx := cmd.Context()
	n, err := tbl.Count(ctx)
	if err != nil {
		return s.out.Fail(err)
	}

	var orphans []int64
	if opts.Sweep {
		orphans, err = tbl.SweepOrphans(ctx)
	} else {
		orphans, err = tbl.Orphans(ctx)
	}
	if err != nil {
		return s.out.Fail(err)
	}
	if orphans == nil {
		orphans = []int64{}
	}

	if s.out.Format == "json" {
		return s.out.Success(CheckResult{Records: n, Orphans: orphans, Swept: opts.Sweep})
	}
	for _, id := range orphans {
		s.out.VerboseLog("Orphan: %s", tbl.RecordKey(id))
	}
	verb := "found"
	if opts.Sweep {
		verb = "swept"
	}
	return s.out.Success(fmt.Sprintf("%s: %d record(s), %s %d orphan(s) %v", tbl.Name(), n, verb, len(orphans), orphans))
}
