// Package schema drops, creates and verifies the song-play tables.
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sparkload/internal/catalog"
	"sparkload/internal/warehouse"
)

// Manager runs the drop and create phases of the catalog against one
// warehouse session.
type Manager struct {
	session warehouse.Session
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewManager creates a new schema manager
func NewManager(session warehouse.Session, cat *catalog.Catalog, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{session: session, catalog: cat, logger: logger}
}

// DropAll runs every drop statement in catalog order, committing each one.
func (m *Manager) DropAll(ctx context.Context) error {
	return m.run(ctx, catalog.KindDrop)
}

// CreateAll runs every create statement in catalog order, committing each
// one. Running it twice fails at staging_events, the only table created
// without IF NOT EXISTS.
func (m *Manager) CreateAll(ctx context.Context) error {
	return m.run(ctx, catalog.KindCreate)
}

// Reset drops and recreates the whole schema.
func (m *Manager) Reset(ctx context.Context) error {
	start := time.Now()
	if err := m.DropAll(ctx); err != nil {
		return err
	}
	if err := m.CreateAll(ctx); err != nil {
		return err
	}
	m.logger.Info("schema reset", "tables", len(catalog.Tables()), "duration", time.Since(start))
	return nil
}

func (m *Manager) run(ctx context.Context, kind catalog.Kind) error {
	stmts := m.catalog.Statements(kind)
	m.logger.Info("starting phase", "phase", string(kind), "statements", len(stmts))

	for i, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s phase cancelled before %s: %w", kind, stmt, err)
		}
		if _, err := m.session.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s phase stopped at statement %d of %d (%s): %w", kind, i+1, len(stmts), stmt, err)
		}
	}
	return nil
}
