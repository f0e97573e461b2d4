package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sparkload/internal/catalog"
	"sparkload/internal/config"
	"sparkload/internal/observability"
	"sparkload/internal/ui"
	"sparkload/internal/warehouse"
	"sparkload/pkg/errors"
	"sparkload/pkg/models"
)

// app holds the persistent flags and the state built from them before a
// command runs.
type app struct {
	configFile string
	dialect    string
	envFile    string
	verbose    bool
	logFormat  string

	logger *slog.Logger
}

// NewRootCmd builds the sparkload command tree.
func NewRootCmd() *cobra.Command {
	rootCmd, _ := newRootCmd()
	return rootCmd
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{logger: observability.Discard()}

	rootCmd := &cobra.Command{
		Use:   "sparkload",
		Short: "Bootstrap and load the song-play warehouse",
		Long: `sparkload creates the staging and star-schema tables of the song-play
warehouse and runs the ETL that bulk-loads the raw event and song logs into
staging and transforms them into the songplays fact and its dimensions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (default: $SPARKLOAD_CONFIG, ./dwh.cfg, ~/.sparkload/dwh.cfg)")
	flags.StringVar(&a.dialect, "dialect", "", "warehouse dialect: redshift, snowflake or duckdb (overrides WAREHOUSE.DIALECT)")
	flags.StringVar(&a.envFile, "env-file", "", "environment file loaded before the config (default: .env)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging, including statement text")
	flags.StringVar(&a.logFormat, "log-format", string(observability.FormatAuto), "log format: auto, text or json")

	rootCmd.AddCommand(
		newCreateTablesCmd(a),
		newETLCmd(a),
		newCatalogCmd(a),
		newVerifyCmd(a),
		newCheckSourcesCmd(a),
		newJSONPathsCmd(a),
		newEncryptPasswordCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return rootCmd, a
}

// Execute runs the root command and exits 1 on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd, a := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		errors.Handle(a.logger, err)
		ui.SetOutput(os.Stderr)
		ui.ShowError(err)
		stop()
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	format, err := observability.ParseFormat(a.logFormat)
	if err != nil {
		return err
	}
	a.logger = observability.NewLogger(observability.LoggerConfig{
		Level:   observability.LevelFromVerbose(a.verbose),
		Output:  cmd.ErrOrStderr(),
		Format:  format,
		Service: "sparkload",
	})
	ui.SetOutput(cmd.OutOrStdout())
	return nil
}

// load reads the configuration with the persistent flag overrides.
func (a *app) load() (*models.Config, error) {
	loaded, err := config.Load(config.Options{
		Path:    a.configFile,
		Dialect: a.dialect,
		EnvFile: a.envFile,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	if loaded.File != "" {
		a.logger.Debug("configuration loaded", "file", loaded.File)
	}
	return loaded.Config, nil
}

// catalog renders the statement catalog for a configuration.
func (a *app) catalog(cfg *models.Config) (*catalog.Catalog, error) {
	d, err := config.Dialect(cfg)
	if err != nil {
		return nil, err
	}
	return catalog.Build(d, config.CatalogParams(cfg))
}

// connect opens the warehouse session. The connection check runs before
// any statement.
func (a *app) connect(ctx context.Context, cfg *models.Config) (*warehouse.Service, error) {
	wc, err := config.WarehouseConfig(cfg)
	if err != nil {
		return nil, err
	}

	spinner := ui.NewSpinner(fmt.Sprintf("Connecting to %s", wc.Dialect))
	spinner.Start()
	svc, err := warehouse.Open(ctx, wc, a.logger)
	if err != nil {
		spinner.Stop(false, "Connection failed")
		return nil, err
	}
	spinner.Stop(true, fmt.Sprintf("Connected to %s", wc.Dialect))
	return svc, nil
}
