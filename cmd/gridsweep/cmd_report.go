package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/gridsweep/internal/constants"
	"github.com/nvandessel/gridsweep/internal/report"
	"github.com/nvandessel/gridsweep/internal/store"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build tables and charts from an existing results root",
		Long: `Aggregate the metrics.csv of every run directory in the results root
and write summary.csv, raw_metrics.csv, sweep.db and the charts.

Run directories without metrics are left out. When the results root holds
a sweep manifest, every (arrival rate, controller) group of that sweep
appears in the summary even if none of its runs produced metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			manifest, err := readSweepManifest(e)
			if err != nil {
				return err
			}
			res, err := buildReport(cmd.Context(), e, manifest)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if e.jsonOut {
				return json.NewEncoder(out).Encode(res)
			}
			fmt.Fprintf(out, "Aggregated %d runs into %d groups\n\n", res.Runs, res.Summary.Len())
			if err := report.RenderSummary(out, res.Summary, e.styled); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nTables written to %s, figures to %s\n", res.Tables, res.Figures)
			return nil
		},
	}

	addResultsFlag(cmd)
	addOutputFlags(cmd)
	return cmd
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the summary stored in the results database",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			path := filepath.Join(e.settings.Paths.Tables, constants.DatabaseFileName)
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("no results database at %s; run \"gridsweep report\" first", path)
			}

			db, err := store.Open(path)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			sum, err := db.LoadSummary(ctx)
			if err != nil {
				return err
			}
			sweepID, _, err := db.Meta(ctx, store.MetaSweepID)
			if err != nil {
				return err
			}
			generated, _, err := db.Meta(ctx, store.MetaGeneratedAt)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if e.jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"sweep_id":     sweepID,
					"generated_at": generated,
					"summary":      sum,
				})
			}
			if sweepID != "" {
				fmt.Fprintf(out, "Sweep %s", sweepID)
				if generated != "" {
					fmt.Fprintf(out, " (report generated %s)", generated)
				}
				fmt.Fprintln(out)
			}
			return report.RenderSummary(out, sum, e.styled)
		},
	}

	addOutputFlags(cmd)
	return cmd
}
