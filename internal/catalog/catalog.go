// Package catalog holds every SQL statement sparkload runs: the drop,
// create, bulk-copy and insert statements for the song-play star schema,
// rendered for one warehouse dialect.
package catalog

import (
	"fmt"
	"strings"

	"sparkload/pkg/errors"
)

// Kind groups statements by the phase that runs them.
type Kind string

const (
	KindDrop   Kind = "drop"
	KindCreate Kind = "create"
	KindCopy   Kind = "copy"
	KindInsert Kind = "insert"
)

// Kinds lists statement kinds in execution order.
var Kinds = []Kind{KindDrop, KindCreate, KindCopy, KindInsert}

// ParseKind resolves a statement kind by name
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == strings.ToLower(name) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown statement kind %q", name)
}

// DefaultRegion is the region of the public song-play dataset bucket.
const DefaultRegion = "us-west-2"

// Params are the environment-provided values substituted into templates.
type Params struct {
	LogData            string // event-log location
	LogJSONPath        string // JSONPaths file for the event log (redshift)
	SongData           string // song-catalog location
	RoleARN            string // IAM role the warehouse assumes to read storage (redshift)
	Region             string // storage region (redshift)
	StorageIntegration string // storage integration name (snowflake)
}

// Validate checks that every value the dialect's templates need is set.
func (p Params) Validate(d Dialect) error {
	required := map[string]string{
		"S3.LOG_DATA":  p.LogData,
		"S3.SONG_DATA": p.SongData,
	}
	switch d {
	case Redshift:
		required["S3.LOG_JSONPATH"] = p.LogJSONPath
		required["IAM_ROLE.ARN"] = p.RoleARN
	case Snowflake:
		required["WAREHOUSE.STORAGE_INTEGRATION"] = p.StorageIntegration
	}

	// Report in a stable order
	for _, field := range []string{"S3.LOG_DATA", "S3.LOG_JSONPATH", "S3.SONG_DATA", "IAM_ROLE.ARN", "WAREHOUSE.STORAGE_INTEGRATION"} {
		value, ok := required[field]
		if ok && strings.TrimSpace(value) == "" {
			return errors.New(errors.ErrCodeRequiredField,
				fmt.Sprintf("%s is required for the %s dialect", field, d)).
				WithContext("field", field).
				WithContext("dialect", string(d))
		}
	}
	return nil
}

// Statement is one rendered SQL statement.
type Statement struct {
	Kind   Kind
	Object string // table, sequence or stage the statement targets
	SQL    string
}

// String returns a short description for logs and errors
func (s Statement) String() string {
	return fmt.Sprintf("%s %s", s.Kind, s.Object)
}

// Catalog is the full rendered statement set for one dialect.
type Catalog struct {
	Dialect Dialect
	Params  Params
	Drops   []Statement
	Creates []Statement
	Copies  []Statement
	Inserts []Statement
}

// Statements returns the ordered statements of one kind.
func (c *Catalog) Statements(kind Kind) []Statement {
	switch kind {
	case KindDrop:
		return c.Drops
	case KindCreate:
		return c.Creates
	case KindCopy:
		return c.Copies
	case KindInsert:
		return c.Inserts
	}
	return nil
}

// All returns every statement in execution order.
func (c *Catalog) All() []Statement {
	var all []Statement
	for _, k := range Kinds {
		all = append(all, c.Statements(k)...)
	}
	return all
}

// Build validates params and renders the catalog for a dialect.
func Build(d Dialect, params Params) (*Catalog, error) {
	if _, err := ParseDialect(string(d)); err != nil {
		return nil, errors.ValidationError("dialect", string(d), err.Error())
	}
	if params.Region == "" {
		params.Region = DefaultRegion
	}
	if err := params.Validate(d); err != nil {
		return nil, err
	}

	b := &builder{dialect: d, params: params, catalog: &Catalog{Dialect: d, Params: params}}
	steps := []func() error{b.drops, b.creates, b.copies, b.inserts}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "Failed to build statement catalog").
				WithContext("dialect", string(d))
		}
	}
	return b.catalog, nil
}

// builder accumulates rendered statements for one Build call.
type builder struct {
	dialect Dialect
	params  Params
	catalog *Catalog
}

func (b *builder) data(t Table) templateData {
	cols := t.LoadColumns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return templateData{
		Params:      b.params,
		Table:       t,
		LoadColumns: names,
		Fields:      EventFields(),
	}
}

func (b *builder) add(list *[]Statement, kind Kind, object, name, text string, data templateData) error {
	sql, err := render(b.dialect, name, text, data)
	if err != nil {
		return err
	}
	*list = append(*list, Statement{Kind: kind, Object: object, SQL: sql})
	return nil
}

func (b *builder) drops() error {
	for _, name := range dropOrder {
		t, _ := LookupTable(name)
		if err := b.add(&b.catalog.Drops, KindDrop, name, "drop_"+name, dropTableTemplate, b.data(t)); err != nil {
			return err
		}
	}

	// Auxiliary objects go after the tables that depend on them
	for _, aux := range b.auxiliary() {
		data := templateData{Params: b.params, Object: aux.name, ObjectType: aux.objectType}
		if err := b.add(&b.catalog.Drops, KindDrop, aux.name, "drop_"+aux.name, dropObjectTemplate, data); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) creates() error {
	aux := make(map[string]auxObject)
	for _, a := range b.auxiliary() {
		aux[a.table] = a
	}

	for _, t := range Tables() {
		// Sequences and stages are created right before their table
		if a, ok := aux[t.Name]; ok {
			data := templateData{Params: b.params, Object: a.name, ObjectType: a.objectType, Location: a.location}
			if err := b.add(&b.catalog.Creates, KindCreate, a.name, "create_"+a.name, a.createTemplate, data); err != nil {
				return err
			}
		}
		if err := b.add(&b.catalog.Creates, KindCreate, t.Name, "create_"+t.Name, createTableTemplate, b.data(t)); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) copies() error {
	var eventsTmpl, songsTmpl string
	switch b.dialect {
	case Snowflake:
		eventsTmpl, songsTmpl = snowflakeCopyEventsTemplate, snowflakeCopySongsTemplate
	case DuckDB:
		eventsTmpl, songsTmpl = duckdbCopyEventsTemplate, duckdbCopySongsTemplate
	default:
		eventsTmpl, songsTmpl = redshiftCopyEventsTemplate, redshiftCopySongsTemplate
	}

	events := b.data(stagingEventsTable)
	events.Object = stageName(StagingEvents)
	if err := b.add(&b.catalog.Copies, KindCopy, StagingEvents, "copy_"+StagingEvents, eventsTmpl, events); err != nil {
		return err
	}

	songs := b.data(stagingSongsTable)
	songs.Object = stageName(StagingSongs)
	return b.add(&b.catalog.Copies, KindCopy, StagingSongs, "copy_"+StagingSongs, songsTmpl, songs)
}

func (b *builder) inserts() error {
	for _, name := range insertOrder {
		t, _ := LookupTable(name)
		if err := b.add(&b.catalog.Inserts, KindInsert, name, "insert_"+name, insertTemplates[name], b.data(t)); err != nil {
			return err
		}
	}
	return nil
}

// auxObject is a dialect-specific object a table depends on.
type auxObject struct {
	table          string
	name           string
	objectType     string
	location       string
	createTemplate string
}

// auxiliary lists the sequences (duckdb) or external stages (snowflake)
// the dialect needs next to the seven tables.
func (b *builder) auxiliary() []auxObject {
	switch b.dialect {
	case DuckDB:
		var out []auxObject
		for _, t := range Tables() {
			if t.HasIdentity() {
				out = append(out, auxObject{
					table:          t.Name,
					name:           sequenceName(t.Name),
					objectType:     "SEQUENCE",
					createTemplate: createSequenceTemplate,
				})
			}
		}
		return out
	case Snowflake:
		return []auxObject{
			{table: StagingEvents, name: stageName(StagingEvents), objectType: "STAGE", location: b.params.LogData, createTemplate: createStageTemplate},
			{table: StagingSongs, name: stageName(StagingSongs), objectType: "STAGE", location: b.params.SongData, createTemplate: createStageTemplate},
		}
	}
	return nil
}
