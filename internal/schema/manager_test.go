package schema

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkload/internal/catalog"
	"sparkload/internal/testutil"
	"sparkload/pkg/errors"
)

func redshiftCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Build(catalog.Redshift, catalog.Params{
		LogData:     "s3://udacity-dend/log_data",
		LogJSONPath: "s3://udacity-dend/log_json_path.json",
		SongData:    "s3://udacity-dend/song_data",
		RoleARN:     "arn:aws:iam::123456789012:role/dwhRole",
	})
	require.NoError(t, err)
	return cat
}

func duckdbCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Build(catalog.DuckDB, catalog.Params{
		LogData:  "/nonexistent/log_data/*.json",
		SongData: "/nonexistent/song_data/*.json",
	})
	require.NoError(t, err)
	return cat
}

func TestDropAllRunsInCatalogOrder(t *testing.T) {
	cat := redshiftCatalog(t)
	session := testutil.NewRecordingSession()
	m := NewManager(session, cat, testutil.DiscardLogger())

	require.NoError(t, m.DropAll(context.Background()))

	assert.Equal(t, []string{
		"staging_events", "staging_songs", "songplays", "users", "songs", "artists", "time",
	}, session.Objects())
	for _, s := range session.Executed {
		assert.Equal(t, catalog.KindDrop, s.Kind)
	}
}

func TestCreateAllStopsAtFirstFailure(t *testing.T) {
	cat := redshiftCatalog(t)
	session := testutil.NewRecordingSession()
	session.FailOn = "songs"
	session.FailErr = fmt.Errorf("permission denied for schema public")
	m := NewManager(session, cat, testutil.DiscardLogger())

	err := m.CreateAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create phase stopped at statement 4 of 7 (create songs)")
	assert.ErrorIs(t, err, session.FailErr)

	// Statements before the failure ran, nothing after it did
	assert.Equal(t, []string{"staging_events", "staging_songs", "users", "songs"}, session.Objects())
}

func TestResetDropsThenCreates(t *testing.T) {
	cat := redshiftCatalog(t)
	session := testutil.NewRecordingSession()
	m := NewManager(session, cat, testutil.DiscardLogger())

	require.NoError(t, m.Reset(context.Background()))

	require.Len(t, session.Executed, len(cat.Drops)+len(cat.Creates))
	for i, s := range session.Executed {
		if i < len(cat.Drops) {
			assert.Equal(t, cat.Drops[i], s)
		} else {
			assert.Equal(t, cat.Creates[i-len(cat.Drops)], s)
		}
	}
}

func TestResetSkipsCreateWhenDropFails(t *testing.T) {
	cat := redshiftCatalog(t)
	session := testutil.NewRecordingSession()
	session.FailOn = "songplays"
	m := NewManager(session, cat, testutil.DiscardLogger())

	require.Error(t, m.Reset(context.Background()))
	for _, s := range session.Executed {
		assert.Equal(t, catalog.KindDrop, s.Kind)
	}
}

func TestResetCommitsEachStatement(t *testing.T) {
	cat := redshiftCatalog(t)
	session, mock := testutil.NewMockSession(t, catalog.Redshift)

	for _, stmt := range append(append([]catalog.Statement{}, cat.Drops...), cat.Creates...) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(stmt.SQL)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
	}

	m := NewManager(session, cat, testutil.DiscardLogger())
	require.NoError(t, m.Reset(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAllRollsBackFailingStatement(t *testing.T) {
	cat := redshiftCatalog(t)
	session, mock := testutil.NewMockSession(t, catalog.Redshift)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(cat.Creates[0].SQL)).
		WillReturnError(fmt.Errorf(`relation "staging_events" already exists`))
	mock.ExpectRollback()

	m := NewManager(session, cat, testutil.DiscardLogger())
	err := m.CreateAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSQLObjectExists, errors.GetErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelledContext(t *testing.T) {
	cat := redshiftCatalog(t)
	session := testutil.NewRecordingSession()
	m := NewManager(session, cat, testutil.DiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.DropAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, session.Executed)
}

func TestResetCreatesEveryTableWithExactColumns(t *testing.T) {
	session := testutil.NewDuckDB(t)
	cat := duckdbCatalog(t)
	m := NewManager(session, cat, testutil.DiscardLogger())
	ctx := context.Background()

	// Reset twice: the second run drops what the first created
	require.NoError(t, m.Reset(ctx))
	require.NoError(t, m.Reset(ctx))

	report, err := m.Verify(ctx)
	require.NoError(t, err)
	require.Len(t, report.Tables, 7)
	for _, tr := range report.Tables {
		assert.True(t, tr.Exists, tr.Name)
		assert.Empty(t, tr.Missing, tr.Name)
		assert.Empty(t, tr.Extra, tr.Name)
		assert.Equal(t, int64(0), tr.Rows, tr.Name)
	}
	assert.True(t, report.OK())
}

func TestResetColumnTypes(t *testing.T) {
	session := testutil.NewDuckDB(t)
	cat := duckdbCatalog(t)
	m := NewManager(session, cat, testutil.DiscardLogger())
	ctx := context.Background()
	require.NoError(t, m.Reset(ctx))

	rows, err := session.Query(ctx, `SELECT column_name, data_type FROM information_schema.columns
WHERE table_name = 'time' ORDER BY ordinal_position`)
	require.NoError(t, err)
	defer rows.Close()

	got := map[string]string{}
	for rows.Next() {
		var name, typ string
		require.NoError(t, rows.Scan(&name, &typ))
		got[name] = typ
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, map[string]string{
		"start_time": "TIMESTAMP",
		"hour":       "INTEGER",
		"day":        "INTEGER",
		"week":       "INTEGER",
		"month":      "INTEGER",
		"year":       "INTEGER",
		"weekday":    "INTEGER",
	}, got)
}

func TestCreateAllTwiceFailsOnlyForStagingEvents(t *testing.T) {
	session := testutil.NewDuckDB(t)
	cat := duckdbCatalog(t)
	m := NewManager(session, cat, testutil.DiscardLogger())
	ctx := context.Background()

	require.NoError(t, m.DropAll(ctx))
	require.NoError(t, m.CreateAll(ctx))

	err := m.CreateAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(create staging_events)")
	assert.Equal(t, errors.ErrCodeSQLObjectExists, errors.GetErrorCode(err))

	// Every other create statement still succeeds on its own
	var failed []string
	for _, stmt := range cat.Creates {
		if _, err := session.Exec(ctx, stmt); err != nil {
			failed = append(failed, stmt.Object)
		}
	}
	assert.Equal(t, []string{"staging_events"}, failed)
}

func TestVerifyReportsDrift(t *testing.T) {
	session := testutil.NewDuckDB(t)
	cat := duckdbCatalog(t)
	m := NewManager(session, cat, testutil.DiscardLogger())
	ctx := context.Background()
	require.NoError(t, m.Reset(ctx))

	for _, sql := range []string{
		"ALTER TABLE songs ADD COLUMN genre VARCHAR",
		`DROP TABLE "time"`,
		`INSERT INTO "users" VALUES (7, 'Test', 'User', 'F', 'free')`,
	} {
		_, err := session.Exec(ctx, catalog.Statement{Kind: catalog.KindCreate, Object: "fixture", SQL: sql})
		require.NoError(t, err)
	}

	report, err := m.Verify(ctx)
	require.NoError(t, err)
	assert.False(t, report.OK())

	byName := map[string]TableReport{}
	for _, tr := range report.Tables {
		byName[tr.Name] = tr
	}
	assert.Equal(t, StatusDrift, byName["songs"].Status())
	assert.Equal(t, []string{"genre"}, byName["songs"].Extra)
	assert.Equal(t, StatusMissing, byName["time"].Status())
	assert.Equal(t, int64(-1), byName["time"].Rows)
	assert.Equal(t, StatusOK, byName["users"].Status())
	assert.Equal(t, int64(1), byName["users"].Rows)

	var buf bytes.Buffer
	report.Render(&buf, false)
	out := buf.String()
	assert.Contains(t, out, "MISSING")
	assert.Contains(t, out, "DRIFT")
	assert.Contains(t, out, "extra: genre")
}

func TestDiffColumns(t *testing.T) {
	missing, extra := diffColumns(
		[]string{"a", "b", "c"},
		[]string{"c", "z", "a", "y"},
	)
	assert.Equal(t, []string{"b"}, missing)
	assert.Equal(t, []string{"y", "z"}, extra)
}
