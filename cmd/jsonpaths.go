package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sparkload/internal/catalog"
	"sparkload/internal/ui"
	"sparkload/pkg/errors"
)

func newJSONPathsCmd(a *app) *cobra.Command {
	var upload bool

	cmd := &cobra.Command{
		Use:   "jsonpaths",
		Short: "Print or upload the JSONPaths file for the event-log copy",
		Long: `Print the JSONPaths document that maps event-log fields onto the
staging_events columns. With --upload it is written to S3.LOG_JSONPATH
instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := catalog.JSONPaths()
			if !upload {
				body, err := doc.Marshal()
				if err != nil {
					return err
				}
				fmt.Fprintln(ui.Output(), string(body))
				return nil
			}

			ctx := cmd.Context()
			cfg, err := a.load()
			if err != nil {
				return err
			}
			location := cfg.S3.LogJSONPath
			if location == "" {
				return errors.ConfigError("S3.LOG_JSONPATH is not set", "S3.LOG_JSONPATH")
			}

			client, err := a.storage(ctx, cfg, 0, location)
			if err != nil {
				return err
			}
			if err := client.PutJSONPaths(ctx, location, doc); err != nil {
				return err
			}
			ui.ShowSuccess(fmt.Sprintf("JSONPaths written to %s", location))
			return nil
		},
	}

	cmd.Flags().BoolVar(&upload, "upload", false, "write the document to S3.LOG_JSONPATH")
	return cmd
}
