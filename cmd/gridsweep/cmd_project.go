package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/gridsweep/internal/kvconfig"
	"github.com/spf13/cobra"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project the template into a flat simulator config",
		Long: `Apply overrides to the nested YAML template and print the flat
key=value configuration the simulator reads. Every override path must
already exist in the template.

Examples:
  gridsweep project
  gridsweep project --set demand.arrival_rate=0.2 --set traffic_lights.controller=actuated
  gridsweep project --set simulation.random_seed=7 --out /tmp/config.kv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			sets, _ := cmd.Flags().GetStringArray("set")
			outPath, _ := cmd.Flags().GetString("out")

			overrides, err := kvconfig.ParseOverrides(sets)
			if err != nil {
				return err
			}
			template, err := kvconfig.LoadDocument(e.settings.Template)
			if err != nil {
				return err
			}

			var flat *kvconfig.FlatConfig
			if outPath != "" {
				flat, err = kvconfig.ProjectToFile(template, overrides, outPath)
			} else {
				flat, err = kvconfig.Project(template, overrides)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case e.jsonOut:
				return json.NewEncoder(out).Encode(map[string]any{
					"entries": flat.Entries,
					"path":    outPath,
				})
			case outPath != "":
				fmt.Fprintf(out, "Wrote %d keys to %s\n", len(flat.Entries), outPath)
			default:
				_, err = out.Write(flat.Bytes())
				return err
			}
			return nil
		},
	}

	cmd.Flags().String("template", "", "Nested YAML template (overrides template)")
	cmd.Flags().StringArray("set", nil, "Override as path=value (repeatable, applied in order)")
	cmd.Flags().String("out", "", "Write the flat config to this file instead of stdout")
	return cmd
}
