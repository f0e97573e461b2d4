package schema

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"sparkload/internal/catalog"
	"sparkload/pkg/errors"
)

// columnsQuery lists the columns of every table in the session's schema.
// Identifiers are lowered because Snowflake reports unquoted names in
// upper case.
const columnsQuery = `SELECT LOWER(table_name), LOWER(column_name)
FROM information_schema.columns
WHERE LOWER(table_schema) = LOWER(CURRENT_SCHEMA())
ORDER BY 1, ordinal_position`

// Status summarizes one table in a verify report.
type Status string

const (
	StatusOK      Status = "OK"
	StatusMissing Status = "MISSING"
	StatusDrift   Status = "DRIFT"
)

// TableReport compares one catalog table with what the warehouse holds.
type TableReport struct {
	Name    string
	Exists  bool
	Missing []string // catalog columns the warehouse table lacks
	Extra   []string // warehouse columns the catalog does not define
	Rows    int64
}

// Status returns the table's verify status
func (t TableReport) Status() Status {
	switch {
	case !t.Exists:
		return StatusMissing
	case len(t.Missing) > 0 || len(t.Extra) > 0:
		return StatusDrift
	}
	return StatusOK
}

// Report is the result of Verify.
type Report struct {
	Dialect catalog.Dialect
	Tables  []TableReport
}

// OK reports whether every table exists with exactly the catalog columns.
func (r *Report) OK() bool {
	for _, t := range r.Tables {
		if t.Status() != StatusOK {
			return false
		}
	}
	return true
}

// Verify reads the warehouse information schema and compares each catalog
// table's columns with its definition, counting rows of the tables found.
func (m *Manager) Verify(ctx context.Context) (*Report, error) {
	actual, err := m.columns(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Dialect: m.catalog.Dialect}
	for _, t := range catalog.Tables() {
		tr := TableReport{Name: t.Name, Rows: -1}
		cols, ok := actual[t.Name]
		if ok {
			tr.Exists = true
			tr.Missing, tr.Extra = diffColumns(t.ColumnNames(), cols)

			rows, err := m.count(ctx, t.Name)
			if err != nil {
				return nil, err
			}
			tr.Rows = rows
		}
		report.Tables = append(report.Tables, tr)
	}

	m.logger.Info("schema verified", "ok", report.OK())
	return report, nil
}

func (m *Manager) columns(ctx context.Context) (map[string][]string, error) {
	rows, err := m.session.Query(ctx, columnsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, errors.SQLError("Failed to read column metadata", columnsQuery, err)
		}
		out[table] = append(out[table], column)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.SQLError("Failed to read column metadata", columnsQuery, err)
	}
	return out, nil
}

func (m *Manager) count(ctx context.Context, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", catalog.Ident(table))
	rows, err := m.session.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, errors.SQLError("Failed to count rows", query, err)
		}
	}
	return n, rows.Err()
}

func diffColumns(want, got []string) (missing, extra []string) {
	have := make(map[string]bool, len(got))
	for _, c := range got {
		have[c] = true
	}
	defined := make(map[string]bool, len(want))
	for _, c := range want {
		defined[c] = true
		if !have[c] {
			missing = append(missing, c)
		}
	}
	for _, c := range got {
		if !defined[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return missing, extra
}

// Render writes the report as a table.
func (r *Report) Render(w io.Writer, useColor bool) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Table", "Status", "Rows", "Details"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, t := range r.Tables {
		status := string(t.Status())
		if useColor {
			switch t.Status() {
			case StatusOK:
				status = color.GreenString(status)
			case StatusMissing:
				status = color.RedString(status)
			case StatusDrift:
				status = color.YellowString(status)
			}
		}

		rows := "-"
		if t.Exists {
			rows = fmt.Sprintf("%d", t.Rows)
		}

		var details []string
		if len(t.Missing) > 0 {
			details = append(details, "missing: "+strings.Join(t.Missing, ", "))
		}
		if len(t.Extra) > 0 {
			details = append(details, "extra: "+strings.Join(t.Extra, ", "))
		}

		table.Append([]string{t.Name, status, rows, strings.Join(details, "; ")})
	}

	table.Render()
}
