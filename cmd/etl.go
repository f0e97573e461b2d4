package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sparkload/internal/pipeline"
	"sparkload/internal/ui"
)

const (
	phaseAll       = "all"
	phaseStaging   = "staging"
	phaseAnalytics = "analytics"
)

func newETLCmd(a *app) *cobra.Command {
	var phase string

	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Load staging and populate the analytics tables",
		Long: `Bulk-copy the event and song logs into the staging tables, then
transform staging into the users, songs, artists and time dimensions and
the songplays fact. Statements run in order and each is committed; the first
failure stops the run.

Run create-tables first; etl does not truncate the analytics tables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			phase = strings.ToLower(strings.TrimSpace(phase))
			if phase != phaseAll && phase != phaseStaging && phase != phaseAnalytics {
				return fmt.Errorf("unknown phase %q (want all, staging or analytics)", phase)
			}

			cfg, err := a.load()
			if err != nil {
				return err
			}
			cat, err := a.catalog(cfg)
			if err != nil {
				return err
			}

			ui.ShowHeader("ETL")
			ui.PrintKeyValue("Dialect", string(cat.Dialect))
			ui.PrintKeyValue("Phase", phase)

			svc, err := a.connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			total := 0
			if phase != phaseAnalytics {
				total += len(cat.Copies)
			}
			if phase != phaseStaging {
				total += len(cat.Inserts)
			}
			printer := ui.NewStepPrinter(svc, total)
			p := pipeline.New(printer, cat, a.logger)

			var results []pipeline.StepResult
			switch phase {
			case phaseStaging:
				results, err = p.LoadStaging(ctx)
			case phaseAnalytics:
				results, err = p.PopulateAnalytics(ctx)
			default:
				results, err = p.Run(ctx)
			}
			printer.Finish()

			if len(results) > 0 {
				fmt.Fprintln(ui.Output())
				ui.ShowRunSummary(results)
			}
			if err != nil {
				return err
			}

			ui.ShowSuccess("ETL complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&phase, "phase", phaseAll, "phase to run: all, staging or analytics")
	return cmd
}
