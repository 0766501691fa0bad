package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/nvandessel/gridsweep/internal/config"
	"github.com/nvandessel/gridsweep/internal/constants"
	"github.com/nvandessel/gridsweep/internal/logging"
	"github.com/spf13/cobra"
)

// cliEnv is what every command needs: the effective settings, a logger on
// stderr and the output mode.
type cliEnv struct {
	settings *config.Settings
	logger   *slog.Logger
	jsonOut  bool
	styled   bool
}

// loadEnv resolves settings from defaults, the settings file, the
// environment and finally the command's own flags.
func loadEnv(cmd *cobra.Command) (*cliEnv, error) {
	path, _ := cmd.Flags().GetString("config")
	settings, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	applyFlags(cmd, settings)
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	return &cliEnv{
		settings: settings,
		logger:   logging.NewLogger(settings.Logging.Level, cmd.ErrOrStderr()),
		jsonOut:  jsonOut,
		styled:   !jsonOut && isTerminal(cmd.OutOrStdout()),
	}, nil
}

// Flags shared by the commands that run or report a sweep. Each command
// registers the subset it understands; applyFlags only looks at flags the
// user set explicitly.
func addSimulatorFlags(cmd *cobra.Command) {
	cmd.Flags().String("simulator", "", "Simulator executable (overrides simulator.path)")
	cmd.Flags().String("template", "", "Nested YAML template (overrides template)")
	cmd.Flags().Duration("timeout", 0, "Per-run timeout, 0 disables (overrides simulator.timeout)")
	cmd.Flags().String("policy", "", "Failure policy: fail_fast or collect_all (overrides sweep.policy)")
	cmd.Flags().Float64Slice("rates-per-min", nil, "Arrival rates in veh/min per entry (overrides sweep.arrival_rates_per_min)")
	cmd.Flags().StringSlice("controllers", nil, "Controller families (overrides sweep.controllers)")
	cmd.Flags().Int64Slice("seeds", nil, "Random seeds (overrides sweep.seeds)")
	cmd.Flags().String("metrics-textfile", "", "Write Prometheus run metrics to this file")
}

func addResultsFlag(cmd *cobra.Command) {
	cmd.Flags().String("results", "", "Results root (overrides paths.results)")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("tables", "", "Table directory (overrides paths.tables)")
	cmd.Flags().String("figures", "", "Figure directory (overrides paths.figures)")
}

func applyFlags(cmd *cobra.Command, s *config.Settings) {
	flags := cmd.Flags()
	changed := func(name string) bool {
		return flags.Lookup(name) != nil && flags.Changed(name)
	}

	if changed("log-level") {
		s.Logging.Level, _ = flags.GetString("log-level")
	}
	if changed("simulator") {
		s.Simulator.Path, _ = flags.GetString("simulator")
	}
	if changed("template") {
		s.Template, _ = flags.GetString("template")
	}
	if changed("timeout") {
		s.Simulator.Timeout, _ = flags.GetDuration("timeout")
	}
	if changed("policy") {
		p, _ := flags.GetString("policy")
		s.Sweep.Policy = constants.Policy(p)
	}
	if changed("rates-per-min") {
		s.Sweep.ArrivalRatesPerMin, _ = flags.GetFloat64Slice("rates-per-min")
	}
	if changed("controllers") {
		s.Sweep.Controllers, _ = flags.GetStringSlice("controllers")
	}
	if changed("seeds") {
		s.Sweep.Seeds, _ = flags.GetInt64Slice("seeds")
	}
	if changed("metrics-textfile") {
		s.Metrics.Textfile, _ = flags.GetString("metrics-textfile")
	}
	if changed("results") {
		s.Paths.Results, _ = flags.GetString("results")
	}
	if changed("tables") {
		s.Paths.Tables, _ = flags.GetString("tables")
	}
	if changed("figures") {
		s.Paths.Figures, _ = flags.GetString("figures")
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
