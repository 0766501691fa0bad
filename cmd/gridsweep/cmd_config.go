package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nvandessel/gridsweep/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect gridsweep settings",
		Long: `View the effective gridsweep settings.

Settings come from the defaults, then ./gridsweep.yaml (or --config), then
GRIDSWEEP_* environment variables.

Examples:
  gridsweep config list
  gridsweep config list --json`,
	}

	cmd.AddCommand(newConfigListCmd())
	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if e.jsonOut {
				return json.NewEncoder(out).Encode(e.settings)
			}

			fmt.Fprintf(out, "Settings (%s):\n\n", settingsSource(cmd))
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(e.settings); err != nil {
				return fmt.Errorf("failed to encode settings: %w", err)
			}
			return enc.Close()
		},
	}
}

// settingsSource names the file settings were read from.
func settingsSource(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	if _, err := os.Stat(config.DefaultFileName); err == nil {
		return config.DefaultFileName
	}
	return "defaults"
}
