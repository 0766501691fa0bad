package report

import (
	"context"
	"fmt"
	"time"

	"github.com/nvandessel/gridsweep/internal/store"
	"github.com/nvandessel/gridsweep/internal/summary"
	"github.com/nvandessel/gridsweep/internal/table"
)

// DatabaseInfo is the sweep metadata stored next to the tables.
type DatabaseInfo struct {
	SweepID     string
	ResultsRoot string
	GeneratedAt time.Time
}

// WriteDatabase stores the metrics table, the summary and info in the
// results database at path, replacing any previous contents.
func WriteDatabase(ctx context.Context, path string, t *table.MetricsTable, sum *summary.Table, info DatabaseInfo) error {
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if info.GeneratedAt.IsZero() {
		info.GeneratedAt = time.Now().UTC()
	}
	meta := map[string]string{
		store.MetaSweepID:     info.SweepID,
		store.MetaResultsRoot: info.ResultsRoot,
		store.MetaGeneratedAt: info.GeneratedAt.Format(time.RFC3339),
	}
	for k, v := range meta {
		if v == "" {
			continue
		}
		if err := db.SetMeta(ctx, k, v); err != nil {
			return err
		}
	}

	if err := db.SaveMetrics(ctx, t); err != nil {
		return fmt.Errorf("failed to store metrics: %w", err)
	}
	if err := db.SaveSummary(ctx, sum); err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}
	return db.Close()
}
