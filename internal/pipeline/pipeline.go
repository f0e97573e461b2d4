// Package pipeline runs the two ETL phases: bulk-copy the raw logs into
// staging, then transform staging into the star schema.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sparkload/internal/catalog"
	"sparkload/internal/warehouse"
)

// StepResult records one executed statement. Err is set on the step that
// stopped the run.
type StepResult struct {
	Kind         catalog.Kind
	Table        string
	Duration     time.Duration
	RowsAffected int64
	Err          error
}

// Pipeline executes catalog copy and insert statements in order.
type Pipeline struct {
	exec    warehouse.Executor
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// New creates a pipeline over an executor
func New(exec warehouse.Executor, cat *catalog.Catalog, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{exec: exec, catalog: cat, logger: logger}
}

// LoadStaging runs the copy statements: event log first, then songs.
func (p *Pipeline) LoadStaging(ctx context.Context) ([]StepResult, error) {
	return p.run(ctx, catalog.KindCopy)
}

// PopulateAnalytics runs the insert statements in dependency order, with
// the songplays fact last.
func (p *Pipeline) PopulateAnalytics(ctx context.Context) ([]StepResult, error) {
	return p.run(ctx, catalog.KindInsert)
}

// Run loads staging and then populates the analytics tables. The results
// gathered so far are returned even when a step fails; statements already
// committed stay committed.
func (p *Pipeline) Run(ctx context.Context) ([]StepResult, error) {
	start := time.Now()

	results, err := p.LoadStaging(ctx)
	if err != nil {
		return results, err
	}

	inserted, err := p.PopulateAnalytics(ctx)
	results = append(results, inserted...)
	if err != nil {
		return results, err
	}

	p.logger.Info("etl complete", "steps", len(results), "duration", time.Since(start))
	return results, nil
}

func (p *Pipeline) run(ctx context.Context, kind catalog.Kind) ([]StepResult, error) {
	stmts := p.catalog.Statements(kind)
	p.logger.Info("starting phase", "phase", string(kind), "statements", len(stmts))

	results := make([]StepResult, 0, len(stmts))
	for i, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("%s phase cancelled before %s: %w", kind, stmt, err)
		}

		res, err := p.exec.Exec(ctx, stmt)
		step := StepResult{
			Kind:         stmt.Kind,
			Table:        stmt.Object,
			Duration:     res.Duration,
			RowsAffected: res.RowsAffected,
			Err:          err,
		}
		results = append(results, step)

		if err != nil {
			return results, fmt.Errorf("%s phase stopped at statement %d of %d (%s): %w", kind, i+1, len(stmts), stmt, err)
		}
	}
	return results, nil
}
