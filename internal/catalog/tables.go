package catalog

// Column is one column of a table definition. Type is written in the
// portable subset of SQL every supported dialect accepts.
type Column struct {
	Name       string
	Type       string
	Identity   bool
	PrimaryKey bool
	NotNull    bool
	DistKey    bool
	SortKey    bool
}

// ForeignKey references a column of another catalog table.
type ForeignKey struct {
	Column    string
	Table     string
	RefColumn string
}

// Table is a table definition. Columns are in load order: for staging
// tables that order is part of the bulk-load contract.
type Table struct {
	Name        string
	Staging     bool
	Conditional bool // CREATE ... IF NOT EXISTS
	Columns     []Column
	ForeignKeys []ForeignKey
}

// ColumnNames returns the column names in definition order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// LoadColumns returns the columns filled by a load, skipping identity columns.
func (t Table) LoadColumns() []Column {
	cols := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Identity {
			cols = append(cols, c)
		}
	}
	return cols
}

// HasIdentity reports whether the table has a generated key column.
func (t Table) HasIdentity() bool {
	for _, c := range t.Columns {
		if c.Identity {
			return true
		}
	}
	return false
}

// Table names
const (
	StagingEvents = "staging_events"
	StagingSongs  = "staging_songs"
	Songplays     = "songplays"
	Users         = "users"
	Songs         = "songs"
	Artists       = "artists"
	Time          = "time"
)

// EventField maps a staging_events column to the key it is read from in
// the event-log JSON.
type EventField struct {
	Column string
	Key    string
}

// eventFields is the event-log row format. Its order is the order of the
// staging_events load columns and of the JSONPaths document.
var eventFields = []EventField{
	{"artist_name", "artist"},
	{"auth", "auth"},
	{"user_first_name", "firstName"},
	{"user_gender", "gender"},
	{"item_in_session", "itemInSession"},
	{"user_last_name", "lastName"},
	{"song_length", "length"},
	{"user_level", "level"},
	{"location", "location"},
	{"method", "method"},
	{"page", "page"},
	{"registration", "registration"},
	{"session_id", "sessionId"},
	{"song_title", "song"},
	{"status", "status"},
	{"ts", "ts"},
	{"user_agent", "userAgent"},
	{"user_id", "userId"},
}

// EventFields returns a copy of the event-log field mapping.
func EventFields() []EventField {
	out := make([]EventField, len(eventFields))
	copy(out, eventFields)
	return out
}

var stagingEventsTable = Table{
	Name:    StagingEvents,
	Staging: true,
	Columns: []Column{
		{Name: "event_id", Type: "BIGINT", Identity: true},
		{Name: "artist_name", Type: "VARCHAR"},
		{Name: "auth", Type: "VARCHAR(50)"},
		{Name: "user_first_name", Type: "VARCHAR(255)"},
		{Name: "user_gender", Type: "VARCHAR(1)"},
		{Name: "item_in_session", Type: "INTEGER"},
		{Name: "user_last_name", Type: "VARCHAR(255)"},
		{Name: "song_length", Type: "DOUBLE PRECISION"},
		{Name: "user_level", Type: "VARCHAR(50)"},
		{Name: "location", Type: "VARCHAR(255)"},
		{Name: "method", Type: "VARCHAR(25)"},
		{Name: "page", Type: "VARCHAR(35)"},
		{Name: "registration", Type: "VARCHAR(50)"},
		{Name: "session_id", Type: "BIGINT"},
		{Name: "song_title", Type: "VARCHAR"},
		{Name: "status", Type: "INTEGER"},
		{Name: "ts", Type: "BIGINT"},
		{Name: "user_agent", Type: "TEXT"},
		{Name: "user_id", Type: "BIGINT"},
	},
}

// Column names must equal the song JSON keys: the song load maps by name.
var stagingSongsTable = Table{
	Name:        StagingSongs,
	Staging:     true,
	Conditional: true,
	Columns: []Column{
		{Name: "num_songs", Type: "INTEGER"},
		{Name: "artist_id", Type: "VARCHAR"},
		{Name: "artist_latitude", Type: "DOUBLE PRECISION"},
		{Name: "artist_longitude", Type: "DOUBLE PRECISION"},
		{Name: "artist_location", Type: "VARCHAR"},
		{Name: "artist_name", Type: "VARCHAR"},
		{Name: "song_id", Type: "VARCHAR"},
		{Name: "title", Type: "VARCHAR"},
		{Name: "duration", Type: "DOUBLE PRECISION"},
		{Name: "year", Type: "INTEGER"},
	},
}

var usersTable = Table{
	Name:        Users,
	Conditional: true,
	Columns: []Column{
		{Name: "user_id", Type: "BIGINT", PrimaryKey: true, DistKey: true},
		{Name: "first_name", Type: "VARCHAR(255)"},
		{Name: "last_name", Type: "VARCHAR(255)"},
		{Name: "gender", Type: "VARCHAR(1)"},
		{Name: "level", Type: "VARCHAR(50)"},
	},
}

var songsTable = Table{
	Name:        Songs,
	Conditional: true,
	Columns: []Column{
		{Name: "song_id", Type: "VARCHAR", PrimaryKey: true, DistKey: true, SortKey: true},
		{Name: "title", Type: "VARCHAR"},
		{Name: "artist_id", Type: "VARCHAR", NotNull: true},
		{Name: "year", Type: "INTEGER"},
		{Name: "duration", Type: "DOUBLE PRECISION"},
	},
}

var artistsTable = Table{
	Name:        Artists,
	Conditional: true,
	Columns: []Column{
		{Name: "artist_id", Type: "VARCHAR", PrimaryKey: true, DistKey: true, SortKey: true},
		{Name: "artist_name", Type: "VARCHAR"},
		{Name: "location", Type: "VARCHAR"},
		{Name: "latitude", Type: "DOUBLE PRECISION"},
		{Name: "longitude", Type: "DOUBLE PRECISION"},
	},
}

var timeTable = Table{
	Name:        Time,
	Conditional: true,
	Columns: []Column{
		{Name: "start_time", Type: "TIMESTAMP", PrimaryKey: true, DistKey: true, SortKey: true},
		{Name: "hour", Type: "INTEGER"},
		{Name: "day", Type: "INTEGER"},
		{Name: "week", Type: "INTEGER"},
		{Name: "month", Type: "INTEGER"},
		{Name: "year", Type: "INTEGER"},
		{Name: "weekday", Type: "INTEGER"},
	},
}

// song_id and artist_id stay nullable: plays with no catalog match keep
// null keys instead of being dropped.
var songplaysTable = Table{
	Name:        Songplays,
	Conditional: true,
	Columns: []Column{
		{Name: "songplay_id", Type: "BIGINT", Identity: true, PrimaryKey: true},
		{Name: "start_time", Type: "TIMESTAMP", NotNull: true, SortKey: true},
		{Name: "user_id", Type: "BIGINT", NotNull: true},
		{Name: "level", Type: "VARCHAR(50)"},
		{Name: "song_id", Type: "VARCHAR"},
		{Name: "artist_id", Type: "VARCHAR", DistKey: true},
		{Name: "session_id", Type: "BIGINT", NotNull: true},
		{Name: "location", Type: "VARCHAR(255)"},
		{Name: "user_agent", Type: "TEXT"},
	},
	ForeignKeys: []ForeignKey{
		{Column: "start_time", Table: Time, RefColumn: "start_time"},
		{Column: "user_id", Table: Users, RefColumn: "user_id"},
		{Column: "song_id", Table: Songs, RefColumn: "song_id"},
		{Column: "artist_id", Table: Artists, RefColumn: "artist_id"},
	},
}

// Tables returns the seven table definitions in create order: staging
// first, then dimensions, the fact table last.
func Tables() []Table {
	return []Table{
		stagingEventsTable,
		stagingSongsTable,
		usersTable,
		songsTable,
		artistsTable,
		timeTable,
		songplaysTable,
	}
}

// dropOrder drops the fact table before the dimensions it references.
var dropOrder = []string{StagingEvents, StagingSongs, Songplays, Users, Songs, Artists, Time}

// insertOrder fills the dimensions before the fact table.
var insertOrder = []string{Users, Songs, Artists, Time, Songplays}

// LookupTable returns the definition of the named table.
func LookupTable(name string) (Table, bool) {
	for _, t := range Tables() {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
