package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/nvandessel/gridsweep/internal/constants"
	"github.com/nvandessel/gridsweep/internal/report"
	"github.com/nvandessel/gridsweep/internal/sweep"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sweep and build the report",
		Long: `Run the full pipeline: sweep every (arrival rate, controller, seed)
combination, aggregate the per-run metrics, and write the summary table,
raw metrics, charts and results database.

The results root is deleted before the first run.

Examples:
  gridsweep run
  gridsweep run --rates-per-min 6,12 --controllers fixed,max_pressure --seeds 0,1
  gridsweep run --policy collect_all --timeout 5m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			rep, sweepErr := runSweep(cmd.Context(), e)
			if rep == nil {
				return sweepErr
			}
			// A failed run aborts the pipeline unless failures are being collected.
			if sweepErr != nil && e.settings.Sweep.Policy != constants.PolicyCollectAll {
				printSweep(cmd.OutOrStdout(), e, rep)
				return sweepErr
			}

			res, err := buildReport(cmd.Context(), e, rep)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if e.jsonOut {
				if err := json.NewEncoder(out).Encode(map[string]any{
					"sweep":  rep,
					"report": res,
				}); err != nil {
					return err
				}
				return sweepErr
			}

			printSweep(out, e, rep)
			fmt.Fprintln(out)
			if err := report.RenderSummary(out, res.Summary, e.styled); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nTables written to %s, figures to %s\n", res.Tables, res.Figures)
			return sweepErr
		},
	}

	addSimulatorFlags(cmd)
	addResultsFlag(cmd)
	addOutputFlags(cmd)
	return cmd
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the sweep without building the report",
		Long: `Run the simulator once per (arrival rate, controller, seed) combination.

Each run writes <results>/<tag>/config.kv and the simulator's metrics.csv.
The sweep manifest is written to <results>/sweep.json and the event log to
<results>/events.jsonl. Use "gridsweep report" to build tables afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			rep, sweepErr := runSweep(cmd.Context(), e)
			if rep == nil {
				return sweepErr
			}
			if e.jsonOut {
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(rep); err != nil {
					return err
				}
			} else {
				printSweep(cmd.OutOrStdout(), e, rep)
			}
			return sweepErr
		},
	}

	addSimulatorFlags(cmd)
	addResultsFlag(cmd)
	return cmd
}

// printSweep writes a short human-readable account of the sweep.
func printSweep(w io.Writer, e *cliEnv, rep *sweep.Report) {
	if e.jsonOut {
		return
	}
	fmt.Fprintf(w, "Sweep %s: %d/%d runs succeeded", rep.SweepID, rep.Succeeded(), rep.Planned)
	if failed := rep.Failed(); len(failed) > 0 {
		fmt.Fprintf(w, ", %d failed", len(failed))
	}
	if rep.Aborted != "" {
		fmt.Fprintf(w, " (stopped: %s)", rep.Aborted)
	}
	fmt.Fprintf(w, " in %s\n", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))
	for _, r := range rep.Failed() {
		fmt.Fprintf(w, "  %s  %s  %s\n", r.Tag, r.Outcome, r.Error)
	}
}
