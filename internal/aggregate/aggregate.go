// Package aggregate folds the per-run metric files under a results root
// into a single metrics table.
//
// Every immediate subdirectory whose name follows the run tag grammar is a
// candidate run. Its metrics file contributes the first data record; the
// axis values come from the directory name. Directories with other names,
// plain files, and runs without a metrics file are skipped silently. A
// metrics file that exists but cannot be read as header plus data row is
// skipped with a warning.
package aggregate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/nvandessel/gridsweep/internal/constants"
	"github.com/nvandessel/gridsweep/internal/runspec"
	"github.com/nvandessel/gridsweep/internal/table"
)

var (
	errNoDataRow       = errors.New("no data row")
	errMalformedHeader = errors.New("malformed header")
)

// Aggregator scans results roots.
type Aggregator struct {
	// Logger receives warnings about unreadable metrics files; nil disables logging.
	Logger *slog.Logger

	// MetricsFile is the per-run file name. Empty means metrics.csv.
	MetricsFile string
}

// New creates an Aggregator that logs to logger.
func New(logger *slog.Logger) *Aggregator {
	return &Aggregator{Logger: logger}
}

// Aggregate is the one-shot form of (&Aggregator{}).Aggregate.
func Aggregate(resultsRoot string) (*table.MetricsTable, error) {
	return (&Aggregator{}).Aggregate(resultsRoot)
}

// Aggregate builds a table with one row per run directory that produced a
// readable metrics file. It fails only when resultsRoot cannot be listed.
// Row order follows the directory listing; use MetricsTable.Sorted for a
// defined order.
func (a *Aggregator) Aggregate(resultsRoot string) (*table.MetricsTable, error) {
	entries, err := os.ReadDir(resultsRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read results root: %w", err)
	}

	t := table.NewMetricsTable()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		spec, ok := runspec.Parse(entry.Name())
		if !ok {
			continue
		}

		path := filepath.Join(resultsRoot, entry.Name(), a.metricsFile())
		keys, metrics, err := readFirstRecord(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			a.warn("skipping run with unreadable metrics", "tag", entry.Name(), "path", path, "error", err)
			continue
		}
		t.Put(spec, metrics, keys...)
	}
	return t, nil
}

func (a *Aggregator) metricsFile() string {
	if a.MetricsFile == "" {
		return constants.MetricsFileName
	}
	return a.MetricsFile
}

func (a *Aggregator) warn(msg string, args ...any) {
	if a.Logger != nil {
		a.Logger.Warn(msg, args...)
	}
}

// readFirstRecord reads the header and the first data record of a metrics
// file. Cells that do not parse as numbers (NaN included) are dropped, as
// are columns named after an axis.
func readFirstRecord(path string) ([]string, map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errNoDataRow
		}
		return nil, nil, fmt.Errorf("%w: %w", errMalformedHeader, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, nil, err
	}

	record, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errNoDataRow
		}
		return nil, nil, fmt.Errorf("failed to read data row: %w", err)
	}

	keys := make([]string, 0, len(header))
	metrics := make(map[string]float64, len(header))
	for i, name := range header {
		if i >= len(record) || isAxisColumn(name) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err != nil || math.IsNaN(v) {
			continue
		}
		keys = append(keys, name)
		metrics[name] = v
	}
	return keys, metrics, nil
}

func checkHeader(header []string) error {
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		header[i] = name
		if name == "" {
			return fmt.Errorf("%w: empty column name at position %d", errMalformedHeader, i)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate column %q", errMalformedHeader, name)
		}
		seen[name] = true
	}
	return nil
}

func isAxisColumn(name string) bool {
	return slices.Contains(table.AxisColumns, name)
}
