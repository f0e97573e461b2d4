package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"sparkload/internal/catalog"
	"sparkload/internal/warehouse"
)

// RecordingSession is an in-memory warehouse.Session that records every
// statement it is asked to run.
type RecordingSession struct {
	mu sync.Mutex

	Executed []catalog.Statement

	// FailOn makes Exec fail for the first statement whose object matches
	FailOn  string
	FailErr error

	// Rows is returned as RowsAffected for each object
	Rows map[string]int64

	// DB answers Query when set
	DB *sql.DB
}

// NewRecordingSession creates an empty recording session
func NewRecordingSession() *RecordingSession {
	return &RecordingSession{Rows: make(map[string]int64)}
}

// Exec records stmt and returns the configured outcome.
func (r *RecordingSession) Exec(ctx context.Context, stmt catalog.Statement) (warehouse.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return warehouse.Result{}, err
	}
	r.Executed = append(r.Executed, stmt)

	if r.FailOn != "" && stmt.Object == r.FailOn {
		err := r.FailErr
		if err == nil {
			err = fmt.Errorf("simulated failure on %s", stmt.Object)
		}
		return warehouse.Result{}, err
	}
	return warehouse.Result{RowsAffected: r.Rows[stmt.Object], Duration: time.Millisecond}, nil
}

// Query delegates to DB.
func (r *RecordingSession) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if r.DB == nil {
		return nil, fmt.Errorf("recording session has no query backend")
	}
	return r.DB.QueryContext(ctx, query, args...)
}

// Objects returns the object names of the executed statements in order.
func (r *RecordingSession) Objects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.Executed))
	for i, s := range r.Executed {
		out[i] = s.Object
	}
	return out
}

// NewMockSession returns a warehouse service backed by sqlmock.
func NewMockSession(t *testing.T, dialect catalog.Dialect) (*warehouse.Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return warehouse.NewWithDB(db, warehouse.Config{Dialect: dialect}, DiscardLogger()), mock
}

// NewDuckDB opens an in-memory DuckDB warehouse closed at test cleanup.
func NewDuckDB(t *testing.T) *warehouse.Service {
	t.Helper()
	svc, err := warehouse.Open(context.Background(), warehouse.Config{Dialect: catalog.DuckDB}, DiscardLogger())
	if err != nil {
		t.Fatalf("Failed to open duckdb: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}
