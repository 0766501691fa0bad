// Package report turns sweep tables into artifacts: CSV tables, charts,
// the SQLite results database and a terminal rendering of the summary.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/csv"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/nvandessel/gridsweep/internal/constants"
	"github.com/nvandessel/gridsweep/internal/summary"
	"github.com/nvandessel/gridsweep/internal/table"
)

// Export writes <tableDir>/summary.csv and the charts into figureDir.
func Export(sum *summary.Table, tableDir, figureDir string) error {
	if err := ExportSummary(sum, tableDir); err != nil {
		return err
	}
	if _, err := WriteCharts(sum, figureDir); err != nil {
		return err
	}
	return nil
}

// ExportSummary writes <tableDir>/summary.csv: one row per group sorted by
// arrival rate then controller, with columns lambda, controller and the
// statistics in order. Missing statistics are empty cells.
func ExportSummary(sum *summary.Table, tableDir string) error {
	rec := summaryRecord(memory.DefaultAllocator, sum)
	defer rec.Release()
	return writeCSV(tableDir, constants.SummaryFileName, rec)
}

// ExportMetrics writes <tableDir>/raw_metrics.csv: one row per run sorted by
// arrival rate, controller and seed, with the axis columns first.
func ExportMetrics(t *table.MetricsTable, tableDir string) error {
	rec := metricsRecord(memory.DefaultAllocator, t)
	defer rec.Release()
	return writeCSV(tableDir, constants.RawMetricsFileName, rec)
}

func summaryRecord(mem memory.Allocator, sum *summary.Table) arrow.Record {
	fields := []arrow.Field{
		{Name: table.ColumnArrivalRate, Type: arrow.PrimitiveTypes.Float64},
		{Name: table.ColumnController, Type: arrow.BinaryTypes.String},
	}
	for _, c := range sum.Columns {
		fields = append(fields, arrow.Field{Name: c, Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	}

	b := array.NewRecordBuilder(mem, arrow.NewSchema(fields, nil))
	defer b.Release()

	rows := slices.Clone(sum.Rows)
	slices.SortFunc(rows, func(a, b summary.Row) int { return a.Key.Compare(b.Key) })
	for _, row := range rows {
		b.Field(0).(*array.Float64Builder).Append(row.ArrivalRate)
		b.Field(1).(*array.StringBuilder).Append(row.Controller)
		for i, c := range sum.Columns {
			v, ok := row.Value(c)
			appendOptional(b.Field(2+i).(*array.Float64Builder), v, ok)
		}
	}
	return b.NewRecord()
}

func metricsRecord(mem memory.Allocator, t *table.MetricsTable) arrow.Record {
	columns := t.Columns()
	fields := []arrow.Field{
		{Name: table.ColumnArrivalRate, Type: arrow.PrimitiveTypes.Float64},
		{Name: table.ColumnController, Type: arrow.BinaryTypes.String},
		{Name: table.ColumnSeed, Type: arrow.PrimitiveTypes.Int64},
	}
	for _, c := range columns {
		fields = append(fields, arrow.Field{Name: c, Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	}

	b := array.NewRecordBuilder(mem, arrow.NewSchema(fields, nil))
	defer b.Release()

	for _, row := range t.Sorted() {
		b.Field(0).(*array.Float64Builder).Append(row.Spec.ArrivalRate)
		b.Field(1).(*array.StringBuilder).Append(row.Spec.Controller)
		b.Field(2).(*array.Int64Builder).Append(row.Spec.Seed)
		for i, c := range columns {
			v, ok := row.Value(c)
			appendOptional(b.Field(3+i).(*array.Float64Builder), v, ok)
		}
	}
	return b.NewRecord()
}

func appendOptional(b *array.Float64Builder, v float64, ok bool) {
	if ok {
		b.Append(v)
	} else {
		b.AppendNull()
	}
}

// writeCSV writes rec with a header row to dir/name, creating dir.
func writeCSV(dir, name string, rec arrow.Record) (err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", name, cerr)
		}
	}()

	w := csv.NewWriter(f, rec.Schema(),
		csv.WithHeader(true),
		csv.WithNullWriter(""),
	)
	if err := w.Write(rec); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
