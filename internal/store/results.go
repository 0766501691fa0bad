// Package store persists sweep tables in a SQLite results database.
//
// The database is a reporting artifact: every save replaces the previous
// contents of the affected tables, and nothing in the pipeline reads it
// back as input. The show command is its only reader.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/gridsweep/internal/runspec"
	"github.com/nvandessel/gridsweep/internal/summary"
	"github.com/nvandessel/gridsweep/internal/table"

	_ "modernc.org/sqlite" // SQLite driver
)

// Metadata keys written by the reporter.
const (
	MetaSweepID     = "sweep_id"
	MetaGeneratedAt = "generated_at"
	MetaResultsRoot = "results_root"
)

// ResultsDB is a handle to a results database file.
type ResultsDB struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path, creating parent directories.
func Open(path string) (*ResultsDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &ResultsDB{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *ResultsDB) Path() string {
	return s.path
}

// Close closes the database.
func (s *ResultsDB) Close() error {
	return s.db.Close()
}

// SetMeta records a metadata value, replacing any previous one.
func (s *ResultsDB) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata %s: %w", key, err)
	}
	return nil
}

// Meta returns a metadata value. The boolean is false when the key is unset.
func (s *ResultsDB) Meta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read metadata %s: %w", key, err)
	}
	return value, true, nil
}

// SaveMetrics replaces the stored runs with the rows of t.
func (s *ResultsDB) SaveMetrics(ctx context.Context, t *table.MetricsTable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM run_metrics`, `DELETE FROM runs`, `DELETE FROM metric_columns`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear runs: %w", err)
		}
	}

	for i, name := range t.Columns() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO metric_columns (position, name) VALUES (?, ?)`, i, name); err != nil {
			return fmt.Errorf("failed to insert metric column %s: %w", name, err)
		}
	}

	runStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO runs (tag, ordinal, lambda, controller, seed) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare run insert: %w", err)
	}
	defer runStmt.Close()

	metricStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_metrics (tag, metric, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare metric insert: %w", err)
	}
	defer metricStmt.Close()

	for i, row := range t.Rows() {
		tag := row.Tag()
		if _, err := runStmt.ExecContext(ctx, tag, i, row.Spec.ArrivalRate, row.Spec.Controller, row.Spec.Seed); err != nil {
			return fmt.Errorf("failed to insert run %s: %w", tag, err)
		}
		for name, v := range row.Metrics {
			if _, err := metricStmt.ExecContext(ctx, tag, name, v); err != nil {
				return fmt.Errorf("failed to insert metric %s for %s: %w", name, tag, err)
			}
		}
	}

	return tx.Commit()
}

// LoadMetrics reads the stored runs back into a metrics table.
func (s *ResultsDB) LoadMetrics(ctx context.Context) (*table.MetricsTable, error) {
	columns, err := s.loadColumns(ctx, `SELECT name FROM metric_columns ORDER BY position`)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.lambda, r.controller, r.seed, m.metric, m.value
		 FROM runs r LEFT JOIN run_metrics m ON m.tag = r.tag
		 ORDER BY r.ordinal`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var specs []runspec.RunSpec
	metrics := make(map[runspec.RunSpec]map[string]float64)
	for rows.Next() {
		var spec runspec.RunSpec
		var metric sql.NullString
		var value sql.NullFloat64
		if err := rows.Scan(&spec.ArrivalRate, &spec.Controller, &spec.Seed, &metric, &value); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		m, ok := metrics[spec]
		if !ok {
			m = make(map[string]float64)
			metrics[spec] = m
			specs = append(specs, spec)
		}
		if metric.Valid && value.Valid {
			m[metric.String] = value.Float64
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}

	t := table.NewMetricsTable()
	for _, spec := range specs {
		t.Put(spec, metrics[spec], columns...)
	}
	return t, nil
}

// SaveSummary replaces the stored summary with sum.
func (s *ResultsDB) SaveSummary(ctx context.Context, sum *summary.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM summary_values`, `DELETE FROM summary_groups`, `DELETE FROM summary_columns`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear summary: %w", err)
		}
	}

	for i, name := range sum.Columns {
		if _, err := tx.ExecContext(ctx, `INSERT INTO summary_columns (position, name) VALUES (?, ?)`, i, name); err != nil {
			return fmt.Errorf("failed to insert summary column %s: %w", name, err)
		}
	}

	for _, row := range sum.Rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO summary_groups (lambda, controller, observations) VALUES (?, ?, ?)`,
			row.ArrivalRate, row.Controller, row.Observations); err != nil {
			return fmt.Errorf("failed to insert summary group: %w", err)
		}
		for _, name := range sum.Columns {
			var value sql.NullFloat64
			if v, ok := row.Value(name); ok {
				value = sql.NullFloat64{Float64: v, Valid: true}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO summary_values (lambda, controller, statistic, value) VALUES (?, ?, ?, ?)`,
				row.ArrivalRate, row.Controller, name, value); err != nil {
				return fmt.Errorf("failed to insert summary value %s: %w", name, err)
			}
		}
	}

	return tx.Commit()
}

// LoadSummary reads the stored summary, rows sorted by arrival rate then
// controller. Missing statistics are absent from the row values.
func (s *ResultsDB) LoadSummary(ctx context.Context) (*summary.Table, error) {
	columns, err := s.loadColumns(ctx, `SELECT name FROM summary_columns ORDER BY position`)
	if err != nil {
		return nil, err
	}

	groups, err := s.db.QueryContext(ctx,
		`SELECT lambda, controller, observations FROM summary_groups ORDER BY lambda, controller`)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary groups: %w", err)
	}
	defer groups.Close()

	sum := &summary.Table{Columns: columns}
	index := make(map[summary.Key]int)
	for groups.Next() {
		var row summary.Row
		if err := groups.Scan(&row.ArrivalRate, &row.Controller, &row.Observations); err != nil {
			return nil, fmt.Errorf("failed to scan summary group: %w", err)
		}
		row.Values = make(map[string]float64)
		index[row.Key] = len(sum.Rows)
		sum.Rows = append(sum.Rows, row)
	}
	if err := groups.Err(); err != nil {
		return nil, fmt.Errorf("failed to read summary groups: %w", err)
	}

	values, err := s.db.QueryContext(ctx,
		`SELECT lambda, controller, statistic, value FROM summary_values WHERE value IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary values: %w", err)
	}
	defer values.Close()

	for values.Next() {
		var key summary.Key
		var name string
		var v float64
		if err := values.Scan(&key.ArrivalRate, &key.Controller, &name, &v); err != nil {
			return nil, fmt.Errorf("failed to scan summary value: %w", err)
		}
		if i, ok := index[key]; ok {
			sum.Rows[i].Values[name] = v
		}
	}
	if err := values.Err(); err != nil {
		return nil, fmt.Errorf("failed to read summary values: %w", err)
	}
	return sum, nil
}

func (s *ResultsDB) loadColumns(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	return columns, nil
}
