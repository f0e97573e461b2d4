package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sparkload/internal/common"
	"sparkload/internal/config"
	"sparkload/internal/ui"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration with the password masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(config.Options{
				Path:    a.configFile,
				Dialect: a.dialect,
				EnvFile: a.envFile,
			}, a.logger)
			if err != nil {
				return err
			}

			body, err := yaml.Marshal(loaded.Config.Redacted())
			if err != nil {
				return fmt.Errorf("failed to render configuration: %w", err)
			}

			source := loaded.File
			if source == "" {
				source = "environment only"
			}
			fmt.Fprintf(ui.Output(), "# source: %s\n%s", source, body)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "paths",
		Short: "List where the config file is looked up, in order",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.SearchPaths(a.configFile) {
				status := ui.ColorDim("missing")
				if path, err := common.CleanPath(p); err == nil {
					if _, err := os.Stat(path); err == nil {
						status = ui.ColorSuccess("found")
					}
				}
				fmt.Fprintf(ui.Output(), "%-50s %s\n", p, status)
			}
		},
	})

	return cmd
}
