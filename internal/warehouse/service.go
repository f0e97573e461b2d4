// Package warehouse owns the single database session sparkload runs its
// statements on.
package warehouse

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/lib/pq"
	"github.com/snowflakedb/gosnowflake"

	"sparkload/internal/catalog"
	"sparkload/pkg/errors"
)

// DefaultPort is the Redshift listener port.
const DefaultPort = 5439

// Executor runs catalog statements. *Service implements it; tests swap in
// fakes.
type Executor interface {
	Exec(ctx context.Context, stmt catalog.Statement) (Result, error)
}

// Querier runs read-only introspection queries.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Session runs statements and queries on the same connection.
type Session interface {
	Executor
	Querier
}

// Result describes one committed statement.
type Result struct {
	RowsAffected int64
	Duration     time.Duration
}

// Config holds warehouse connection settings
type Config struct {
	Dialect  catalog.Dialect
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// Snowflake
	Account   string
	Warehouse string
	Role      string
	Schema    string

	// DuckDB database file; empty means in-memory
	Path string

	// Per-statement timeout; zero means no limit
	Timeout time.Duration
}

// Service provides statement execution on one warehouse connection
type Service struct {
	db        *sql.DB
	config    Config
	logger    *slog.Logger
	connected bool
}

// NewService creates a new warehouse service
func NewService(config Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{config: config, logger: logger}
}

// NewWithDB wraps an already opened database handle.
func NewWithDB(db *sql.DB, config Config, logger *slog.Logger) *Service {
	s := NewService(config, logger)
	s.db = db
	s.connected = true
	return s
}

// Open validates config, connects and pings the warehouse.
func Open(ctx context.Context, config Config, logger *slog.Logger) (*Service, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	s := NewService(config, logger)
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect opens the connection pool and verifies it with a ping. The pool
// is pinned to a single connection so every statement shares one session.
func (s *Service) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}

	driver, dsn, err := DSN(s.config)
	if err != nil {
		return err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return errors.ConnectionError("Failed to open warehouse connection", err).
			WithContext("dialect", s.config.Dialect.String()).
			WithContext("driver", driver)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()

		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.Wrap(err, errors.ErrCodeConnectionTimeout, "Timed out connecting to warehouse").
				WithSeverity(errors.SeverityCritical).
				WithContext("dialect", s.config.Dialect.String()).
				WithContext("endpoint", s.endpoint()).
				WithSuggestions(
					"Check that the cluster is available and publicly accessible",
					"Verify the security group allows inbound traffic on the port",
				)
		}

		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "authentication") || strings.Contains(msg, "password") {
			return errors.Wrap(err, errors.ErrCodeAuthenticationFailed, "Authentication failed").
				WithSeverity(errors.SeverityCritical).
				WithContext("user", s.config.User).
				WithSuggestions(
					"Verify CLUSTER.DB_USER and CLUSTER.DB_PASSWORD",
					"Check whether the password is stored encrypted or in the keyring",
				)
		}
		return errors.ConnectionError("Failed to connect to warehouse", err).
			WithContext("dialect", s.config.Dialect.String()).
			WithContext("endpoint", s.endpoint())
	}

	s.db = db
	s.connected = true
	s.logger.Debug("connected to warehouse",
		"dialect", s.config.Dialect.String(),
		"endpoint", s.endpoint())
	return nil
}

// Close closes the database connection
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	s.connected = false
	return nil
}

// Exec runs one statement in its own transaction and commits it.
func (s *Service) Exec(ctx context.Context, stmt catalog.Statement) (Result, error) {
	if !s.connected {
		return Result{}, errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse").
			WithSuggestions("Call Connect() before executing statements")
	}

	ctx, cancel := s.statementContext(ctx)
	defer cancel()

	start := time.Now()
	s.logger.Debug("executing statement", "kind", string(stmt.Kind), "object", stmt.Object, "sql", stmt.SQL)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to begin transaction").
			WithContext("statement", stmt.String())
	}

	res, err := tx.ExecContext(ctx, stmt.SQL)
	if err != nil {
		_ = tx.Rollback()
		return Result{}, errors.SQLError(fmt.Sprintf("Failed to execute %s", stmt), stmt.SQL, err).
			WithContext("kind", string(stmt.Kind)).
			WithContext("object", stmt.Object)
	}

	if err := tx.Commit(); err != nil {
		return Result{}, errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to commit transaction").
			WithContext("statement", stmt.String())
	}

	// Some drivers cannot report affected rows for DDL or COPY
	rows, err := res.RowsAffected()
	if err != nil {
		rows = -1
	}

	result := Result{RowsAffected: rows, Duration: time.Since(start)}
	s.logger.Info("statement committed",
		"kind", string(stmt.Kind),
		"object", stmt.Object,
		"rows", result.RowsAffected,
		"duration", result.Duration)
	return result, nil
}

// Query runs a read-only query on the session.
func (s *Service) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if !s.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.SQLError("Failed to run query", query, err)
	}
	return rows, nil
}

// Dialect returns the configured dialect
func (s *Service) Dialect() catalog.Dialect {
	return s.config.Dialect
}

func (s *Service) statementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}

func (s *Service) endpoint() string {
	switch s.config.Dialect {
	case catalog.Snowflake:
		return s.config.Account
	case catalog.DuckDB:
		if s.config.Path == "" {
			return ":memory:"
		}
		return s.config.Path
	}
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.port()))
}

func (s *Service) port() int {
	if s.config.Port == 0 {
		return DefaultPort
	}
	return s.config.Port
}

// DSN returns the driver name and data source name for a config.
func DSN(config Config) (string, string, error) {
	switch config.Dialect {
	case catalog.Redshift:
		sslMode := config.SSLMode
		if sslMode == "" {
			sslMode = "require"
		}
		port := config.Port
		if port == 0 {
			port = DefaultPort
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(config.User, config.Password),
			Host:     net.JoinHostPort(config.Host, strconv.Itoa(port)),
			Path:     "/" + config.Database,
			RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
		}
		return "postgres", u.String(), nil

	case catalog.Snowflake:
		dsn, err := gosnowflake.DSN(&gosnowflake.Config{
			Account:   config.Account,
			User:      config.User,
			Password:  config.Password,
			Database:  config.Database,
			Schema:    config.Schema,
			Warehouse: config.Warehouse,
			Role:      config.Role,
		})
		if err != nil {
			return "", "", errors.ConnectionError("Failed to build Snowflake DSN", err).
				WithContext("account", config.Account)
		}
		return "snowflake", dsn, nil

	case catalog.DuckDB:
		return "duckdb", config.Path, nil
	}

	return "", "", errors.New(errors.ErrCodeDriverUnavailable,
		fmt.Sprintf("No driver for dialect %q", config.Dialect)).
		WithSeverity(errors.SeverityCritical)
}

// ValidateConfig checks that the connection settings for the dialect are set
func ValidateConfig(config Config) error {
	required := func(field, value string) error {
		if strings.TrimSpace(value) == "" {
			return errors.ConfigError(fmt.Sprintf("%s is required for the %s dialect", field, config.Dialect), field)
		}
		return nil
	}

	var checks [][2]string
	switch config.Dialect {
	case catalog.Redshift:
		checks = [][2]string{
			{"CLUSTER.HOST", config.Host},
			{"CLUSTER.DB_NAME", config.Database},
			{"CLUSTER.DB_USER", config.User},
			{"CLUSTER.DB_PASSWORD", config.Password},
		}
		if config.Port < 0 || config.Port > 65535 {
			return errors.ConfigError(fmt.Sprintf("invalid port %d", config.Port), "CLUSTER.DB_PORT")
		}
	case catalog.Snowflake:
		checks = [][2]string{
			{"WAREHOUSE.ACCOUNT", config.Account},
			{"CLUSTER.DB_USER", config.User},
			{"CLUSTER.DB_PASSWORD", config.Password},
			{"CLUSTER.DB_NAME", config.Database},
			{"WAREHOUSE.WAREHOUSE", config.Warehouse},
		}
	case catalog.DuckDB:
		// in-memory is allowed
	default:
		return errors.ConfigError(fmt.Sprintf("unsupported dialect %q", config.Dialect), "WAREHOUSE.DIALECT")
	}

	for _, c := range checks {
		if err := required(c[0], c[1]); err != nil {
			return err
		}
	}
	return nil
}
