package cmd

import (
	"github.com/spf13/cobra"

	"sparkload/internal/catalog"
	"sparkload/internal/ui"
)

func newCatalogCmd(a *app) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the rendered SQL statements",
		Long: `Print the statements create-tables and etl run, in execution order,
rendered for the configured dialect. No connection is made.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			cat, err := a.catalog(cfg)
			if err != nil {
				return err
			}

			stmts := cat.All()
			if kind != "" {
				k, err := catalog.ParseKind(kind)
				if err != nil {
					return err
				}
				stmts = cat.Statements(k)
			}
			ui.ShowStatements(stmts)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "only print one list: drop, create, copy or insert")
	return cmd
}
