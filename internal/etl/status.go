package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listings-etl/internal/db"
)

// statusTables are the tables reported on, in display order.
var statusTables = []string{"products", "categories", "companies", "product_metrics"}

// TableCount is a row count for one table.
type TableCount struct {
	Table string
	Rows  int64
}

// RunSummary is one etl_runs row as shown by the status command.
type RunSummary struct {
	ID         string
	Source     string
	Status     string
	Attempted  int
	Loaded     int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// StatusReport aggregates table counts and recent runs.
type StatusReport struct {
	Counts     []TableCount
	Featured   int64
	RecentRuns []RunSummary
}

// Status gathers table row counts and the most recent runs.
func Status(ctx context.Context, pool db.Pool, recentRuns int) (*StatusReport, error) {
	report := &StatusReport{}

	for _, table := range statusTables {
		var count int64
		sql := fmt.Sprintf("SELECT count(*) FROM %s", table)
		if err := pool.QueryRow(ctx, sql).Scan(&count); err != nil {
			return nil, eris.Wrapf(err, "etl: count %s", table)
		}
		report.Counts = append(report.Counts, TableCount{Table: table, Rows: count})
	}

	if err := pool.QueryRow(ctx,
		"SELECT count(*) FROM product_metrics WHERE is_featured",
	).Scan(&report.Featured); err != nil {
		return nil, eris.Wrap(err, "etl: count featured products")
	}

	rows, err := pool.Query(ctx, `
		SELECT id, source, status, attempted, loaded, started_at, finished_at
		FROM etl_runs
		ORDER BY started_at DESC
		LIMIT $1`, recentRuns)
	if err != nil {
		return nil, eris.Wrap(err, "etl: query recent runs")
	}
	defer rows.Close()

	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.ID, &run.Source, &run.Status, &run.Attempted,
			&run.Loaded, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "etl: scan run row")
		}
		report.RecentRuns = append(report.RecentRuns, run)
	}
	return report, rows.Err()
}
