package catalog

import (
	"fmt"
	"strings"
)

// Dialect selects the SQL flavour the catalog renders for.
type Dialect string

const (
	Redshift  Dialect = "redshift"
	Snowflake Dialect = "snowflake"
	DuckDB    Dialect = "duckdb"
)

// Dialects lists every supported dialect, default first.
var Dialects = []Dialect{Redshift, Snowflake, DuckDB}

// ParseDialect resolves a configured dialect name. The empty string maps to
// Redshift.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(Redshift):
		return Redshift, nil
	case string(Snowflake):
		return Snowflake, nil
	case string(DuckDB):
		return DuckDB, nil
	}
	return "", fmt.Errorf("unsupported dialect %q (expected one of redshift, snowflake, duckdb)", name)
}

// String returns the dialect name
func (d Dialect) String() string {
	return string(d)
}

// reservedNames must be quoted wherever they are used as identifiers.
var reservedNames = map[string]bool{
	"users": true,
	"time":  true,
}

// Ident renders a table identifier, quoting names that collide with
// keywords in at least one dialect.
func Ident(name string) string {
	if reservedNames[name] {
		return `"` + name + `"`
	}
	return name
}

// Literal renders s as a single-quoted SQL string literal.
func Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// epochSeconds converts an epoch-milliseconds column to a TIMESTAMP
// truncated to whole seconds.
func (d Dialect) epochSeconds(expr string) string {
	switch d {
	case Snowflake:
		return fmt.Sprintf("TO_TIMESTAMP_NTZ(FLOOR(%s / 1000)::INTEGER)", expr)
	case DuckDB:
		return fmt.Sprintf("epoch_ms((%s // 1000) * 1000)", expr)
	default:
		return fmt.Sprintf("TIMESTAMP 'epoch' + %s / 1000 * INTERVAL '1 second'", expr)
	}
}

// datePart names a calendar part in the dialect's EXTRACT syntax.
func (d Dialect) datePart(part string) string {
	if part == "weekday" {
		if d == Snowflake {
			return "DAYOFWEEK"
		}
		return "DOW"
	}
	return strings.ToUpper(part)
}

// extract renders EXTRACT(<part> FROM expr).
func (d Dialect) extract(part, expr string) string {
	return fmt.Sprintf("EXTRACT(%s FROM %s)", d.datePart(part), expr)
}

// sequenceName is the DuckDB sequence backing an identity column.
func sequenceName(table string) string {
	return table + "_id_seq"
}

// stageName is the Snowflake external stage for a staging table.
func stageName(table string) string {
	return "sparkload_" + strings.TrimPrefix(table, "staging_") + "_stage"
}

// columnDef renders a single column definition.
func (d Dialect) columnDef(t Table, c Column) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(" ")

	if c.Identity {
		switch d {
		case Redshift:
			b.WriteString("BIGINT IDENTITY(0,1)")
		case Snowflake:
			b.WriteString("BIGINT AUTOINCREMENT START 0 INCREMENT 1")
		case DuckDB:
			b.WriteString("BIGINT DEFAULT nextval(" + Literal(sequenceName(t.Name)) + ")")
		}
	} else {
		b.WriteString(c.Type)
	}

	// DuckDB enforces key constraints, the warehouses only record them.
	// Keys are left off DuckDB tables so both behave the same way.
	if c.PrimaryKey && d != DuckDB {
		b.WriteString(" PRIMARY KEY")
	}
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if d == Redshift {
		if c.DistKey {
			b.WriteString(" DISTKEY")
		}
		if c.SortKey {
			b.WriteString(" SORTKEY")
		}
	}
	return b.String()
}

// tableOptions renders anything that follows the closing parenthesis of a
// CREATE TABLE.
func (d Dialect) tableOptions(t Table) string {
	if d != Snowflake {
		return ""
	}
	var keys []string
	for _, c := range t.Columns {
		if c.SortKey {
			keys = append(keys, c.Name)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	return " CLUSTER BY (" + strings.Join(keys, ", ") + ")"
}
