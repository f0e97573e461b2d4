package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sparkload/internal/schema"
	"sparkload/internal/ui"
	"sparkload/pkg/errors"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Compare the warehouse tables with the expected schema",
		Long: `Check that every staging and analytics table exists with exactly the
expected columns and report its row count. Exits non-zero when a table is
missing or its columns differ.`,
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

			svc, err := a.connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			report, err := schema.NewManager(svc, cat, a.logger).Verify(ctx)
			if err != nil {
				return err
			}
			report.Render(ui.Output(), ui.ColorEnabled())

			if !report.OK() {
				failing := 0
				for _, t := range report.Tables {
					if t.Status() != schema.StatusOK {
						failing++
					}
				}
				return errors.New(errors.ErrCodeValidationFailed,
					fmt.Sprintf("%d of %d tables do not match the expected schema", failing, len(report.Tables))).
					WithSuggestions("Run sparkload create-tables to recreate the schema")
			}
			ui.ShowSuccess("Schema matches")
			return nil
		},
	}
}
