// Package config loads dwh.cfg, applies environment overrides and resolves
// the warehouse password.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"sparkload/internal/catalog"
	"sparkload/internal/common"
	"sparkload/internal/warehouse"
	"sparkload/pkg/errors"
	"sparkload/pkg/models"
)

const (
	// EnvPrefix prefixes every environment override: SPARKLOAD_<SECTION>_<KEY>.
	EnvPrefix = "SPARKLOAD"
	// EnvConfigFile names the config file when --config is not given.
	EnvConfigFile = "SPARKLOAD_CONFIG"
	// DefaultFileName is the config file looked up in the working directory.
	DefaultFileName = "dwh.cfg"
)

// keys lists every recognised setting so environment overrides apply even
// when the file omits them.
var keys = []string{
	"cluster.host", "cluster.db_name", "cluster.db_user", "cluster.db_password", "cluster.db_port", "cluster.sslmode",
	"iam_role.arn",
	"s3.log_data", "s3.log_jsonpath", "s3.song_data",
	"warehouse.dialect", "warehouse.region", "warehouse.account", "warehouse.warehouse", "warehouse.role",
	"warehouse.schema", "warehouse.storage_integration", "warehouse.path", "warehouse.timeout", "warehouse.anonymous_s3",
}

// Options control Load.
type Options struct {
	// Path is an explicit config file; it must exist when set
	Path string
	// Dialect overrides WAREHOUSE.DIALECT when set
	Dialect string
	// EnvFile is loaded into the environment before reading; defaults to .env
	EnvFile string
}

// Loaded is a resolved configuration and the file it came from.
type Loaded struct {
	Config *models.Config
	File   string // empty when only the environment was used
}

// SearchPaths returns the config file candidates in lookup order.
func SearchPaths(explicit string) []string {
	var paths []string
	if explicit != "" {
		paths = append(paths, explicit)
	}
	if env := os.Getenv(EnvConfigFile); env != "" {
		paths = append(paths, env)
	}
	paths = append(paths, DefaultFileName)
	if dir, err := common.AppDir(); err == nil {
		paths = append(paths, filepath.Join(dir, DefaultFileName))
	}
	return paths
}

// Load reads the first config file found, applies environment overrides
// and resolves the password.
func Load(opts Options, logger *slog.Logger) (*Loaded, error) {
	if logger == nil {
		logger = slog.Default()
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to load environment file").
				WithContext("file", envFile)
		}
		logger.Debug("loaded environment file", "file", envFile)
	}

	file, err := findConfigFile(opts.Path)
	if err != nil {
		return nil, err
	}

	v := newViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		v.SetDefault(k, "")
	}
	v.SetDefault("cluster.db_port", warehouse.DefaultPort)
	v.SetDefault("warehouse.dialect", string(catalog.Redshift))
	v.SetDefault("warehouse.region", catalog.DefaultRegion)
	v.SetDefault("warehouse.timeout", "0s")
	v.SetDefault("warehouse.anonymous_s3", false)

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType(configType(file))
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to read config file").
				WithContext("file", file).
				WithSeverity(errors.SeverityCritical)
		}
		logger.Debug("loaded config file", "file", file)
	} else {
		logger.Debug("no config file found, using environment only", "searched", SearchPaths(opts.Path))
	}

	for _, k := range keys {
		if s, ok := v.Get(k).(string); ok {
			v.Set(k, unquote(s))
		}
	}
	if opts.Dialect != "" {
		v.Set("warehouse.dialect", opts.Dialect)
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to decode configuration").
			WithContext("file", file).
			WithSeverity(errors.SeverityCritical)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	password, err := ResolvePassword(&cfg)
	if err != nil {
		return nil, err
	}
	cfg.Cluster.DBPassword = password

	return &Loaded{Config: &cfg, File: file}, nil
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		path, err := common.CleanPath(explicit)
		if err != nil {
			return "", errors.ConfigError(err.Error(), "--config")
		}
		if _, err := os.Stat(path); err != nil {
			return "", errors.New(errors.ErrCodeConfigNotFound,
				fmt.Sprintf("Config file %s not found", explicit)).
				WithContext("file", explicit).
				WithSeverity(errors.SeverityCritical).
				WithSuggestions("Copy dwh.cfg.example to dwh.cfg and fill it in")
		}
		return path, nil
	}

	for _, candidate := range SearchPaths("") {
		path, err := common.CleanPath(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", nil
}

func configType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	}
	return "ini"
}

// unquote strips one pair of matching quotes. Existing dwh.cfg files
// quote every value, including the port.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Dialect returns the configured dialect.
func Dialect(c *models.Config) (catalog.Dialect, error) {
	d, err := catalog.ParseDialect(c.Warehouse.Dialect)
	if err != nil {
		return "", errors.ConfigError(err.Error(), "WAREHOUSE.DIALECT")
	}
	return d, nil
}

// CatalogParams maps the config onto catalog template parameters.
func CatalogParams(c *models.Config) catalog.Params {
	return catalog.Params{
		LogData:            c.S3.LogData,
		LogJSONPath:        c.S3.LogJSONPath,
		SongData:           c.S3.SongData,
		RoleARN:            c.IAMRole.ARN,
		Region:             c.Warehouse.Region,
		StorageIntegration: c.Warehouse.StorageIntegration,
	}
}

// WarehouseConfig maps the config onto warehouse connection settings.
func WarehouseConfig(c *models.Config) (warehouse.Config, error) {
	d, err := Dialect(c)
	if err != nil {
		return warehouse.Config{}, err
	}
	return warehouse.Config{
		Dialect:   d,
		Host:      c.Cluster.Host,
		Port:      c.Cluster.DBPort,
		Database:  c.Cluster.DBName,
		User:      c.Cluster.DBUser,
		Password:  c.Cluster.DBPassword,
		SSLMode:   c.Cluster.SSLMode,
		Account:   c.Warehouse.Account,
		Warehouse: c.Warehouse.Warehouse,
		Role:      c.Warehouse.Role,
		Schema:    c.Warehouse.Schema,
		Path:      c.Warehouse.Path,
		Timeout:   c.Warehouse.Timeout,
	}, nil
}
