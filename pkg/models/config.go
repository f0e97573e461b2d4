package models

import (
	"fmt"
	"strings"
	"time"

	"sparkload/pkg/errors"
)

// Config mirrors the dwh.cfg sections.
type Config struct {
	Cluster   Cluster   `mapstructure:"cluster" yaml:"cluster"`
	IAMRole   IAMRole   `mapstructure:"iam_role" yaml:"iam_role"`
	S3        S3        `mapstructure:"s3" yaml:"s3"`
	Warehouse Warehouse `mapstructure:"warehouse" yaml:"warehouse"`
}

// Cluster holds the warehouse endpoint and credentials.
type Cluster struct {
	Host       string `mapstructure:"host" yaml:"host"`
	DBName     string `mapstructure:"db_name" yaml:"db_name"`
	DBUser     string `mapstructure:"db_user" yaml:"db_user"`
	DBPassword string `mapstructure:"db_password" yaml:"db_password"`
	DBPort     int    `mapstructure:"db_port" yaml:"db_port"`
	SSLMode    string `mapstructure:"sslmode" yaml:"sslmode,omitempty"`
}

// IAMRole is the role Redshift assumes to read S3.
type IAMRole struct {
	ARN string `mapstructure:"arn" yaml:"arn"`
}

// S3 holds the source locations.
type S3 struct {
	LogData     string `mapstructure:"log_data" yaml:"log_data"`
	LogJSONPath string `mapstructure:"log_jsonpath" yaml:"log_jsonpath"`
	SongData    string `mapstructure:"song_data" yaml:"song_data"`
}

// Warehouse selects and configures the target dialect.
type Warehouse struct {
	Dialect            string        `mapstructure:"dialect" yaml:"dialect"`
	Region             string        `mapstructure:"region" yaml:"region,omitempty"`
	Account            string        `mapstructure:"account" yaml:"account,omitempty"`
	Warehouse          string        `mapstructure:"warehouse" yaml:"warehouse,omitempty"`
	Role               string        `mapstructure:"role" yaml:"role,omitempty"`
	Schema             string        `mapstructure:"schema" yaml:"schema,omitempty"`
	StorageIntegration string        `mapstructure:"storage_integration" yaml:"storage_integration,omitempty"`
	Path               string        `mapstructure:"path" yaml:"path,omitempty"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
	AnonymousS3        bool          `mapstructure:"anonymous_s3" yaml:"anonymous_s3,omitempty"`
}

var dialects = []string{"redshift", "snowflake", "duckdb"}

// Validate checks the values that do not depend on which command runs.
// Connection and source settings are checked by the packages that use them.
func (c *Config) Validate() error {
	dialect := strings.ToLower(strings.TrimSpace(c.Warehouse.Dialect))
	if dialect != "" {
		known := false
		for _, d := range dialects {
			if d == dialect {
				known = true
			}
		}
		if !known {
			return errors.ConfigError(
				fmt.Sprintf("unsupported dialect %q (expected one of %s)", c.Warehouse.Dialect, strings.Join(dialects, ", ")),
				"WAREHOUSE.DIALECT")
		}
	}

	if c.Cluster.DBPort < 0 || c.Cluster.DBPort > 65535 {
		return errors.ConfigError(fmt.Sprintf("invalid port %d", c.Cluster.DBPort), "CLUSTER.DB_PORT")
	}
	if c.Warehouse.Timeout < 0 {
		return errors.ConfigError("timeout cannot be negative", "WAREHOUSE.TIMEOUT")
	}
	if c.IAMRole.ARN != "" && !strings.HasPrefix(c.IAMRole.ARN, "arn:") {
		return errors.ConfigError(fmt.Sprintf("%q is not an IAM role ARN", c.IAMRole.ARN), "IAM_ROLE.ARN")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Cluster.DBPassword != "" {
		c.Cluster.DBPassword = "********"
	}
	return c
}
