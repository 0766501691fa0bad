package report

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/nvandessel/gridsweep/internal/constants"
	"github.com/nvandessel/gridsweep/internal/summary"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Chart is a line chart of one summary statistic against the arrival rate.
type Chart struct {
	Statistic string
	File      string
	YLabel    string
}

// Charts lists the figures written by WriteCharts, in order.
var Charts = []Chart{
	{Statistic: "mean_tt_mean", File: "mean_travel_time_vs_lambda.png", YLabel: "Mean travel time [s]"},
	{Statistic: "p95_tt_mean", File: "p95_travel_time_vs_lambda.png", YLabel: "P95 travel time [s]"},
	{Statistic: "throughput_mean", File: "throughput_vs_lambda.png", YLabel: "Throughput [veh/s]"},
	{Statistic: "avg_queue_mean", File: "avg_queue_vs_lambda.png", YLabel: "Average queue [veh]"},
	{Statistic: "blocked_entries_mean", File: "blocked_entries_vs_lambda.png", YLabel: "Blocked entries [count]"},
}

// ArrivalRateLabel is the x axis label of every chart.
const ArrivalRateLabel = "Arrival rate λ [veh/min per entry]"

const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 4 * vg.Inch
)

// WriteCharts renders one PNG per entry of Charts into dir and returns the
// paths written. Charts whose statistic is not a summary column, or that
// have no defined value at all, are skipped. The x axis is the arrival rate
// in vehicles per minute; each controller is one line.
func WriteCharts(sum *summary.Table, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create figure directory: %w", err)
	}

	var written []string
	for _, c := range Charts {
		if !slices.Contains(sum.Columns, c.Statistic) {
			continue
		}
		series := chartSeries(sum, c.Statistic)
		if len(series) == 0 {
			continue
		}

		p := plot.New()
		p.X.Label.Text = ArrivalRateLabel
		p.Y.Label.Text = c.YLabel
		p.Legend.Top = true
		p.Add(plotter.NewGrid())

		args := make([]any, 0, 2*len(series))
		for _, s := range series {
			args = append(args, s.controller, s.points)
		}
		if err := plotutil.AddLinePoints(p, args...); err != nil {
			return written, fmt.Errorf("failed to plot %s: %w", c.Statistic, err)
		}

		path := filepath.Join(dir, c.File)
		if err := p.Save(chartWidth, chartHeight, path); err != nil {
			return written, fmt.Errorf("failed to save %s: %w", c.File, err)
		}
		written = append(written, path)
	}
	return written, nil
}

type series struct {
	controller string
	points     plotter.XYs
}

// chartSeries collects the defined values of stat per controller, in
// controller order, each sorted by arrival rate.
func chartSeries(sum *summary.Table, stat string) []series {
	byController := make(map[string]plotter.XYs)
	for _, row := range sum.Rows {
		v, ok := row.Value(stat)
		if !ok {
			continue
		}
		x := row.ArrivalRate * constants.SecondsPerMinute
		byController[row.Controller] = append(byController[row.Controller], plotter.XY{X: x, Y: v})
	}

	controllers := make([]string, 0, len(byController))
	for ctrl := range byController {
		controllers = append(controllers, ctrl)
	}
	slices.Sort(controllers)

	out := make([]series, 0, len(controllers))
	for _, ctrl := range controllers {
		pts := byController[ctrl]
		slices.SortFunc(pts, func(a, b plotter.XY) int { return cmp.Compare(a.X, b.X) })
		out = append(out, series{controller: ctrl, points: pts})
	}
	return out
}
