package catalog

import (
	"fmt"
	"strings"
	"text/template"
)

// Statement templates. Every template is rendered with the same data value
// (templateData) and a dialect-bound FuncMap.

const dropTableTemplate = `DROP TABLE IF EXISTS {{ident .Table.Name}}`

const dropObjectTemplate = `DROP {{.ObjectType}} IF EXISTS {{.Object}}`

const createTableTemplate = `CREATE TABLE {{if .Table.Conditional}}IF NOT EXISTS {{end}}{{ident .Table.Name}} (
{{- range $i, $c := .Table.Columns}}
    {{if $i}}, {{else}}  {{end}}{{columnDef $.Table $c}}
{{- end}}
{{- if foreignKeys}}
{{- range .Table.ForeignKeys}}
    , FOREIGN KEY ({{.Column}}) REFERENCES {{ident .Table}} ({{.RefColumn}})
{{- end}}
{{- end}}
){{tableOptions .Table}}`

const createSequenceTemplate = `CREATE SEQUENCE IF NOT EXISTS {{.Object}} START 1`

const createStageTemplate = `CREATE STAGE IF NOT EXISTS {{.Object}}
    URL = {{literal .Location}}
    STORAGE_INTEGRATION = {{.Params.StorageIntegration}}
    FILE_FORMAT = (TYPE = 'JSON')`

// Bulk copies. Redshift pulls straight from S3; the event log goes through
// a JSONPaths file whose expression order equals the column list.

const redshiftCopyEventsTemplate = `COPY {{ident .Table.Name}} ({{join .LoadColumns}})
FROM {{literal .Params.LogData}}
CREDENTIALS {{literal (printf "aws_iam_role=%s" .Params.RoleARN)}}
REGION {{literal .Params.Region}}
FORMAT AS JSON {{literal .Params.LogJSONPath}}`

const redshiftCopySongsTemplate = `COPY {{ident .Table.Name}}
FROM {{literal .Params.SongData}}
CREDENTIALS {{literal (printf "aws_iam_role=%s" .Params.RoleARN)}}
REGION {{literal .Params.Region}}
FORMAT AS JSON 'auto'`

const snowflakeCopyEventsTemplate = `COPY INTO {{ident .Table.Name}} ({{join .LoadColumns}})
FROM (
    SELECT
{{- range $i, $f := .Fields}}
        {{if $i}}, {{else}}  {{end}}{{snowflakeField $f}}
{{- end}}
    FROM @{{.Object}}
)
FILE_FORMAT = (TYPE = 'JSON')`

const snowflakeCopySongsTemplate = `COPY INTO {{ident .Table.Name}}
FROM @{{.Object}}
FILE_FORMAT = (TYPE = 'JSON')
MATCH_BY_COLUMN_NAME = CASE_INSENSITIVE`

const duckdbCopyEventsTemplate = `INSERT INTO {{ident .Table.Name}} ({{join .LoadColumns}})
SELECT
{{- range $i, $f := .Fields}}
      {{if $i}}, {{else}}  {{end}}{{duckdbField $f}}
{{- end}}
FROM read_json({{literal .Params.LogData}}, format = 'auto', columns = { {{- duckdbRawColumns .Fields -}} }) j`

const duckdbCopySongsTemplate = `INSERT INTO {{ident .Table.Name}} ({{join .LoadColumns}})
SELECT {{join .LoadColumns}}
FROM read_json({{literal .Params.SongData}}, format = 'auto', columns = { {{- duckdbTypedColumns .Table -}} })`

// Analytics inserts. Shared across dialects; only the timestamp conversion
// and calendar-part extraction differ.

const usersInsertTemplate = `INSERT INTO {{ident "users"}} (user_id, first_name, last_name, gender, level)
SELECT DISTINCT u.user_id
     , u.first_name
     , u.last_name
     , u.gender
     , u.level
FROM (
    SELECT se.user_id AS user_id
         , se.user_first_name AS first_name
         , se.user_last_name AS last_name
         , se.user_gender AS gender
         , se.user_level AS level
         , ROW_NUMBER() OVER (PARTITION BY se.user_id ORDER BY se.ts DESC) AS rn
    FROM staging_events se
    WHERE se.user_id IS NOT NULL
) u
WHERE u.rn = 1`

const songsInsertTemplate = `INSERT INTO songs (song_id, title, artist_id, year, duration)
SELECT DISTINCT s.song_id AS song_id
     , s.title AS title
     , s.artist_id AS artist_id
     , s.year AS year
     , s.duration AS duration
FROM staging_songs s
WHERE s.song_id IS NOT NULL`

const artistsInsertTemplate = `INSERT INTO artists (artist_id, artist_name, location, latitude, longitude)
SELECT DISTINCT a.artist_id
     , a.artist_name
     , a.location
     , a.latitude
     , a.longitude
FROM (
    SELECT s.artist_id AS artist_id
         , s.artist_name AS artist_name
         , s.artist_location AS location
         , s.artist_latitude AS latitude
         , s.artist_longitude AS longitude
         , ROW_NUMBER() OVER (PARTITION BY s.artist_id ORDER BY s.song_id) AS rn
    FROM staging_songs s
    WHERE s.artist_id IS NOT NULL
) a
WHERE a.rn = 1`

const timeInsertTemplate = `INSERT INTO {{ident "time"}} (start_time, hour, day, week, month, year, weekday)
SELECT DISTINCT t.start_time
     , {{extract "hour" "t.start_time"}} AS hour
     , {{extract "day" "t.start_time"}} AS day
     , {{extract "week" "t.start_time"}} AS week
     , {{extract "month" "t.start_time"}} AS month
     , {{extract "year" "t.start_time"}} AS year
     , {{extract "weekday" "t.start_time"}} AS weekday
FROM (
    SELECT {{epoch "se.ts"}} AS start_time
    FROM staging_events se
    WHERE se.ts IS NOT NULL
) t`

const songplaysInsertTemplate = `INSERT INTO songplays (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
SELECT DISTINCT {{epoch "se.ts"}} AS start_time
     , se.user_id AS user_id
     , se.user_level AS level
     , s.song_id AS song_id
     , s.artist_id AS artist_id
     , se.session_id AS session_id
     , se.location AS location
     , se.user_agent AS user_agent
FROM staging_events se
LEFT JOIN staging_songs s
    ON s.title = se.song_title
    AND s.artist_name = se.artist_name
WHERE se.page = 'NextSong'
    AND se.user_id IS NOT NULL`

var insertTemplates = map[string]string{
	Users:     usersInsertTemplate,
	Songs:     songsInsertTemplate,
	Artists:   artistsInsertTemplate,
	Time:      timeInsertTemplate,
	Songplays: songplaysInsertTemplate,
}

// templateData is the value every statement template is executed with.
type templateData struct {
	Params      Params
	Table       Table
	LoadColumns []string
	Fields      []EventField
	Object      string
	ObjectType  string
	Location    string
}

// funcMap binds the template helpers to a dialect.
func funcMap(d Dialect) template.FuncMap {
	types := columnTypes()
	return template.FuncMap{
		"ident":   Ident,
		"literal": Literal,
		"join": func(cols []string) string {
			return strings.Join(cols, ", ")
		},
		"columnDef":    d.columnDef,
		"tableOptions": d.tableOptions,
		"foreignKeys": func() bool {
			return d != DuckDB
		},
		"epoch":   d.epochSeconds,
		"extract": d.extract,
		"snowflakeField": func(f EventField) string {
			return snowflakeField(f, types[f.Column])
		},
		"duckdbField": func(f EventField) string {
			return duckdbField(f, types[f.Column])
		},
		"duckdbRawColumns":   duckdbRawColumns,
		"duckdbTypedColumns": duckdbTypedColumns,
	}
}

// render parses and executes a single statement template.
func render(d Dialect, name, text string, data templateData) (string, error) {
	tmpl, err := template.New(name).Funcs(funcMap(d)).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return b.String(), nil
}

// columnTypes indexes the staging_events column types by name.
func columnTypes() map[string]string {
	types := make(map[string]string, len(stagingEventsTable.Columns))
	for _, c := range stagingEventsTable.Columns {
		types[c.Name] = c.Type
	}
	return types
}

func isNumeric(sqlType string) bool {
	switch sqlType {
	case "BIGINT", "INTEGER", "DOUBLE PRECISION":
		return true
	}
	return false
}

// snowflakeField extracts one key from the raw JSON variant. Numeric keys
// go through TRY_ conversions so blank strings load as NULL.
func snowflakeField(f EventField, sqlType string) string {
	raw := fmt.Sprintf("$1:%s", f.Key)
	switch sqlType {
	case "BIGINT", "INTEGER":
		return fmt.Sprintf("TRY_TO_NUMBER(%s::VARCHAR)", raw)
	case "DOUBLE PRECISION":
		return fmt.Sprintf("TRY_TO_DOUBLE(%s::VARCHAR)", raw)
	}
	return raw + "::VARCHAR"
}

// duckdbField reads every key as text and casts numeric columns with
// TRY_CAST so blank strings load as NULL.
func duckdbField(f EventField, sqlType string) string {
	raw := fmt.Sprintf(`j."%s"`, f.Key)
	if isNumeric(sqlType) {
		return fmt.Sprintf("TRY_CAST(%s AS %s)", raw, sqlType)
	}
	return raw
}

func duckdbRawColumns(fields []EventField) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: 'VARCHAR'", Literal(f.Key))
	}
	return strings.Join(parts, ", ")
}

func duckdbTypedColumns(t Table) string {
	cols := t.LoadColumns()
	parts := make([]string, len(cols))
	for i, c := range cols {
		sqlType := c.Type
		if sqlType == "DOUBLE PRECISION" {
			sqlType = "DOUBLE"
		}
		parts[i] = fmt.Sprintf("%s: %s", Literal(c.Name), Literal(sqlType))
	}
	return strings.Join(parts, ", ")
}
