package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"sparkload/internal/catalog"
	"sparkload/internal/storage"
	"sparkload/internal/ui"
	"sparkload/pkg/models"
)

func newCheckSourcesCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "check-sources",
		Short: "Check that the configured log and song sources hold data",
		Long: `List S3.LOG_DATA, S3.SONG_DATA and, for redshift, S3.LOG_JSONPATH and
report how many objects each holds. An empty source fails the check. Local
paths and globs are checked on disk.`,
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

			locations := []string{cfg.S3.LogData, cfg.S3.SongData}
			if cat.Dialect == catalog.Redshift && cfg.S3.LogJSONPath != "" {
				locations = append(locations, cfg.S3.LogJSONPath)
			}

			client, err := a.storage(ctx, cfg, limit, locations...)
			if err != nil {
				return err
			}

			sources, err := client.CheckSources(ctx, locations...)
			if len(sources) > 0 {
				ui.ShowSources(sources)
			}
			if err != nil {
				return err
			}
			ui.ShowSuccess("All sources hold data")
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", storage.DefaultListLimit, "stop counting a source after this many objects")
	return cmd
}

// storage returns an S3-backed client when any location needs one and a
// local-only client otherwise.
func (a *app) storage(ctx context.Context, cfg *models.Config, limit int, locations ...string) (*storage.Client, error) {
	for _, loc := range locations {
		if storage.IsS3(loc) {
			return storage.NewClient(ctx, storage.Options{
				Region:    cfg.Warehouse.Region,
				Anonymous: cfg.Warehouse.AnonymousS3,
				Limit:     limit,
			}, a.logger)
		}
	}
	return storage.New(nil, limit, a.logger), nil
}
