package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sparkload/internal/catalog"
	"sparkload/internal/schema"
	"sparkload/internal/ui"
)

func newCreateTablesCmd(a *app) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "create-tables",
		Short: "Drop and recreate every staging and analytics table",
		Long: `Drop all seven warehouse tables if they exist and create them again,
empty. Each statement is committed on its own; the first failure stops the
run and leaves the tables handled so far in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := a.load()
			if err != nil {
				return err
			}
			cat, err := a.catalog(cfg)
			if err != nil {
				return err
			}

			ui.ShowHeader("Create Tables")
			ui.PrintKeyValue("Dialect", string(cat.Dialect))
			ui.PrintKeyValue("Tables", fmt.Sprintf("%d", len(catalog.Tables())))

			if confirm {
				ok, err := ui.Confirm("Drop and recreate all tables? Existing data is lost.", false)
				if err != nil {
					return err
				}
				if !ok {
					ui.ShowWarning("Cancelled, nothing was changed")
					return nil
				}
			}

			svc, err := a.connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			printer := ui.NewStepPrinter(svc, len(cat.Drops)+len(cat.Creates))
			err = schema.NewManager(printer, cat, a.logger).Reset(ctx)
			printer.Finish()
			if err != nil {
				return err
			}

			ui.ShowSuccess("Schema reset")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "ask for confirmation before dropping tables")
	return cmd
}
