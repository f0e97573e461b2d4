package ui

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"sparkload/internal/catalog"
	"sparkload/internal/warehouse"
)

// StepPrinter wraps a warehouse session and prints a line before and
// after every statement it executes.
type StepPrinter struct {
	session warehouse.Session
	total   int
	current int
	mu      sync.Mutex

	successCount int
	failureCount int
	startTime    time.Time
}

// NewStepPrinter wraps session; total is the number of statements the
// caller is about to run.
func NewStepPrinter(session warehouse.Session, total int) *StepPrinter {
	return &StepPrinter{session: session, total: total, startTime: time.Now()}
}

// Exec runs one statement through the wrapped session
func (p *StepPrinter) Exec(ctx context.Context, stmt catalog.Statement) (warehouse.Result, error) {
	p.mu.Lock()
	p.current++
	current := p.current
	p.mu.Unlock()

	fmt.Fprintf(out, "%s [%d/%d] %s %s\n",
		ColorProgress(">"),
		current,
		p.total,
		stmt.Kind,
		ColorBold(stmt.Object),
	)

	res, err := p.session.Exec(ctx, stmt)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failureCount++
		fmt.Fprintf(out, "  %s %s\n", ColorError("x"), stmt.Object)
		return res, err
	}

	p.successCount++
	detail := formatDuration(res.Duration)
	if res.RowsAffected >= 0 && stmt.Kind != catalog.KindDrop && stmt.Kind != catalog.KindCreate {
		detail += fmt.Sprintf(", %d rows", res.RowsAffected)
	}
	fmt.Fprintf(out, "  %s %s (%s)\n", ColorSuccess("ok"), stmt.Object, ColorDim(detail))
	return res, nil
}

// Query passes through to the wrapped session.
func (p *StepPrinter) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return p.session.Query(ctx, query, args...)
}

// Finish prints the totals
func (p *StepPrinter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(out, "\n%s %d of %d statements in %s\n",
		ColorSuccess("Done:"),
		p.successCount,
		p.total,
		formatDuration(time.Since(p.startTime)),
	)
	if p.failureCount > 0 {
		fmt.Fprintf(out, "  %s %d failed\n", ColorError("x"), p.failureCount)
	}
}

// Spinner represents an animated spinner for long operations
type Spinner struct {
	frames  []string
	current int
	message string
	stop    chan struct{}
	done    chan struct{}
	stopped bool
	mu      sync.Mutex
}

// NewSpinner creates a new spinner
func NewSpinner(message string) *Spinner {
	return &Spinner{
		frames:  []string{"|", "/", "-", "\\"},
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the spinner animation. Nothing is animated when output is
// not a terminal.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		if !supportsColor {
			<-s.stop
			return
		}

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				fmt.Fprintf(out, "\r%s %s%s",
					ColorProgress(s.frames[s.current]),
					s.message,
					strings.Repeat(" ", 20),
				)
				s.current = (s.current + 1) % len(s.frames)
				s.mu.Unlock()
			}
		}
	}()
}

// Stop stops the spinner and prints the final status
func (s *Spinner) Stop(success bool, message string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stop)
	<-s.done

	if supportsColor {
		fmt.Fprint(out, "\r\033[K")
	}
	if success {
		fmt.Fprintf(out, "%s %s\n", ColorSuccess("ok"), message)
	} else {
		fmt.Fprintf(out, "%s %s\n", ColorError("x"), message)
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
