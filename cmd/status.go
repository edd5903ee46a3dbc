package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/listings-etl/internal/etl"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show table counts and recent runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runs, _ := cmd.Flags().GetInt("runs")

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		report, err := etl.Status(ctx, pool, runs)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		formatStatusReport(os.Stdout, report)
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("runs", 10, "number of recent runs to show")
	rootCmd.AddCommand(statusCmd)
}

// formatStatusReport writes a tabular representation of the report to out.
func formatStatusReport(out io.Writer, report *etl.StatusReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "TABLE\tROWS")
	_, _ = fmt.Fprintln(w, "-----\t----")
	for _, c := range report.Counts {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", c.Table, c.Rows)
	}
	_, _ = fmt.Fprintf(w, "featured products\t%d\n", report.Featured)
	_ = w.Flush()

	if len(report.RecentRuns) == 0 {
		_, _ = fmt.Fprintln(out, "\nNo runs recorded yet")
		return
	}

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tSOURCE\tSTATUS\tSTARTED\tDURATION\tATTEMPTED\tLOADED")
	_, _ = fmt.Fprintln(w, "---\t------\t------\t-------\t--------\t---------\t------")
	for _, r := range report.RecentRuns {
		dur := "-"
		if r.FinishedAt != nil {
			dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			truncate(r.ID, 8),
			r.Source,
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			r.Attempted,
			r.Loaded,
		)
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
