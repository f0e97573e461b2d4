package ui

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"sparkload/internal/catalog"
	"sparkload/internal/pipeline"
	"sparkload/internal/storage"
)

// ShowRunSummary prints one row per executed ETL step.
func ShowRunSummary(results []pipeline.StepResult) {
	table := tablewriter.NewWriter(out)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Phase", "Table", "Rows", "Duration", "Status"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	var rows int64
	for _, r := range results {
		status := ColorSuccess("ok")
		if r.Err != nil {
			status = ColorError("failed")
		}
		n := "-"
		if r.RowsAffected >= 0 && r.Err == nil {
			n = strconv.FormatInt(r.RowsAffected, 10)
			rows += r.RowsAffected
		}
		table.Append([]string{phaseName(r.Kind), r.Table, n, formatDuration(r.Duration), status})
	}
	table.SetFooter([]string{"", "", strconv.FormatInt(rows, 10), "", fmt.Sprintf("%d steps", len(results))})
	table.Render()
}

// ShowSources prints the result of a storage preflight.
func ShowSources(sources []storage.Source) {
	table := tablewriter.NewWriter(out)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Location", "Objects", "Bytes"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, s := range sources {
		objects := strconv.Itoa(s.Objects)
		if s.Truncated {
			objects += "+"
		}
		table.Append([]string{s.Location, objects, strconv.FormatInt(s.Bytes, 10)})
	}
	table.Render()
}

// ShowStatements prints rendered catalog statements separated by a
// comment naming each one.
func ShowStatements(stmts []catalog.Statement) {
	for i, s := range stmts {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s\n%s;\n", ColorDim("-- "+s.String()), s.SQL)
	}
}

func phaseName(k catalog.Kind) string {
	switch k {
	case catalog.KindCopy:
		return "staging"
	case catalog.KindInsert:
		return "analytics"
	}
	return string(k)
}
