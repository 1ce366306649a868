package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"netaudit/internal/format"
	"netaudit/internal/index"
)

var runsFlags struct {
	db       string
	markdown bool
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded probe runs",
	RunE:  runRuns,
}

func init() {
	f := runsCmd.Flags()
	f.StringVar(&runsFlags.db, "db", index.DefaultPath, "Run/freeze index path")
	f.BoolVar(&runsFlags.markdown, "markdown", false, "Render as a Markdown table")
}

func runRuns(cmd *cobra.Command, _ []string) error {
	ix, err := index.Open(runsFlags.db)
	if err != nil {
		return err
	}
	defer ix.Close()

	records, err := ix.ListRuns()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No probe runs recorded.")
		return nil
	}

	mode := format.ASCII
	if runsFlags.markdown {
		mode = format.Markdown
	}
	tb := format.NewTable(mode)
	tb.Header("RUN", "HOST", "PLATFORM", "CONTRACT", "STATUS", "OK/TOTAL", "STARTED", "TOOK")
	tb.Columns(
		format.ColumnConfig{Number: 4, MaxWidth: 24},
		format.ColumnConfig{Number: 6, Align: format.AlignRight},
	)
	for _, r := range records {
		tb.Row(
			format.Truncate(r.RunID, 11),
			r.Host,
			r.Platform,
			r.ContractName,
			r.Status,
			fmt.Sprintf("%d/%d", r.CommandsOK, r.CommandsTotal),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			format.FmtDuration(r.FinishedAt.Sub(r.StartedAt)),
		)
	}
	tb.Footer("runs", len(records))
	fmt.Fprintln(out, tb.String())
	return nil
}
