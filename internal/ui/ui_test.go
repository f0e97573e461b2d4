package ui

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkload/internal/catalog"
	"sparkload/internal/pipeline"
	"sparkload/internal/storage"
	"sparkload/internal/testutil"
	"sparkload/pkg/errors"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	t.Cleanup(SetOutput(&buf))
	return &buf
}

func TestColorFunc(t *testing.T) {
	original := supportsColor
	defer func() { supportsColor = original }()

	funcs := []func(string) string{
		ColorSuccess, ColorError, ColorWarning, ColorInfo, ColorProgress, ColorBold, ColorDim,
	}

	supportsColor = true
	for _, f := range funcs {
		assert.NotEqual(t, "text", f("text"))
	}
	supportsColor = false
	for _, f := range funcs {
		assert.Equal(t, "text", f("text"))
	}
}

func TestSetOutputDisablesColor(t *testing.T) {
	buf := capture(t)
	assert.False(t, ColorEnabled())
	assert.Same(t, buf, Output())

	ShowSuccess("tables created")
	ShowWarning("careful")
	ShowInfo("fyi")
	assert.Equal(t, "SUCCESS: tables created\nWARNING: careful\nINFO: fyi\n", buf.String())
}

func TestShowHeader(t *testing.T) {
	buf := capture(t)
	ShowHeader("Create Tables")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Create Tables")
	assert.Equal(t, len(lines[0]), len(lines[1]))
}

func TestShowErrorUsesAppErrorSuggestions(t *testing.T) {
	buf := capture(t)
	err := errors.SQLError("Statement failed", "COPY staging_events ...", fmt.Errorf("permission denied for relation staging_events")).
		WithContext("kind", "copy").
		WithContext("object", "staging_events")
	ShowError(fmt.Errorf("copy phase stopped at statement 1 of 2: %w", err))

	out := buf.String()
	assert.Contains(t, out, "ERROR:")
	assert.Contains(t, out, "copy phase stopped at statement 1 of 2")
	assert.Contains(t, out, "object:")
	assert.Contains(t, out, "staging_events")
	assert.Contains(t, out, "TIP:")
}

func TestShowErrorFallsBackToSuggestion(t *testing.T) {
	buf := capture(t)
	ShowError(fmt.Errorf("dial tcp 10.0.0.1:5439: connect: connection refused"))
	assert.Contains(t, buf.String(), "Verify HOST and DB_PORT")
}

func TestGetSuggestion(t *testing.T) {
	tests := map[string]string{
		`pq: password authentication failed for user "dwhuser"`: "Check DB_USER",
		"Load into table 'staging_events' failed. Check 'stl_load_errors' system table": "stl_load_errors",
		`pq: relation "staging_events" does not exist`:                                  "create-tables",
		"User arn:aws:redshift:x is not authorized to perform: sts:AssumeRole":          "IAM_ROLE.ARN",
		"something unexpected": "",
	}
	for msg, want := range tests {
		got := getSuggestion(msg)
		if want == "" {
			assert.Empty(t, got, msg)
			continue
		}
		assert.Contains(t, got, want, msg)
	}
}

func TestStepPrinter(t *testing.T) {
	buf := capture(t)
	session := testutil.NewRecordingSession()
	session.Rows["songplays"] = 333
	printer := NewStepPrinter(session, 2)

	ctx := context.Background()
	_, err := printer.Exec(ctx, catalog.Statement{Kind: catalog.KindCreate, Object: "users", SQL: "CREATE TABLE users ()"})
	require.NoError(t, err)
	res, err := printer.Exec(ctx, catalog.Statement{Kind: catalog.KindInsert, Object: "songplays", SQL: "INSERT INTO songplays ..."})
	require.NoError(t, err)
	assert.Equal(t, int64(333), res.RowsAffected)
	printer.Finish()

	out := buf.String()
	assert.Contains(t, out, "[1/2] create users")
	assert.Contains(t, out, "[2/2] insert songplays")
	assert.Contains(t, out, "333 rows")
	assert.Contains(t, out, "2 of 2 statements")
	assert.Equal(t, []string{"users", "songplays"}, session.Objects())
}

func TestStepPrinterFailure(t *testing.T) {
	buf := capture(t)
	session := testutil.NewRecordingSession()
	session.FailOn = "time"
	printer := NewStepPrinter(session, 1)

	_, err := printer.Exec(context.Background(), catalog.Statement{Kind: catalog.KindInsert, Object: "time"})
	require.Error(t, err)
	printer.Finish()
	assert.Contains(t, buf.String(), "1 failed")
}

func TestSpinnerOffTerminal(t *testing.T) {
	buf := capture(t)
	s := NewSpinner("Connecting")
	s.Start()
	s.Stop(true, "Connected")
	s.Stop(true, "ignored")
	assert.Equal(t, "ok Connected\n", buf.String())
}

func TestRunSummary(t *testing.T) {
	buf := capture(t)
	ShowRunSummary([]pipeline.StepResult{
		{Kind: catalog.KindCopy, Table: "staging_events", RowsAffected: 8056, Duration: 2 * time.Second},
		{Kind: catalog.KindInsert, Table: "users", RowsAffected: 97, Duration: 150 * time.Millisecond},
		{Kind: catalog.KindInsert, Table: "songs", Err: fmt.Errorf("boom")},
	})

	out := buf.String()
	assert.Contains(t, out, "staging")
	assert.Contains(t, out, "analytics")
	assert.Contains(t, out, "8056")
	assert.Contains(t, out, "8153")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "3 steps")
}

func TestShowSources(t *testing.T) {
	buf := capture(t)
	ShowSources([]storage.Source{
		{Location: "s3://udacity-dend/log_data", Objects: 30, Bytes: 1024},
		{Location: "s3://udacity-dend/song_data", Objects: 1000, Bytes: 4096, Truncated: true},
	})
	out := buf.String()
	assert.Contains(t, out, "s3://udacity-dend/log_data")
	assert.Contains(t, out, "1000+")
}

func TestShowStatements(t *testing.T) {
	buf := capture(t)
	ShowStatements([]catalog.Statement{
		{Kind: catalog.KindDrop, Object: "songs", SQL: "DROP TABLE IF EXISTS songs"},
		{Kind: catalog.KindDrop, Object: "users", SQL: `DROP TABLE IF EXISTS "users"`},
	})
	assert.Equal(t, "-- drop songs\nDROP TABLE IF EXISTS songs;\n\n-- drop users\nDROP TABLE IF EXISTS \"users\";\n", buf.String())
}

func TestPrompts(t *testing.T) {
	original := askOne
	defer func() { askOne = original }()

	askOne = func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
		switch v := response.(type) {
		case *bool:
			*v = true
		case *string:
			*v = "Passw0rd"
		}
		return nil
	}

	ok, err := Confirm("Drop all tables?", false)
	require.NoError(t, err)
	assert.True(t, ok)

	password, err := Password("Password", "")
	require.NoError(t, err)
	assert.Equal(t, "Passw0rd", password)

	askOne = func(survey.Prompt, interface{}, ...survey.AskOpt) error { return fmt.Errorf("interrupt") }
	ok, err = Confirm("Drop all tables?", false)
	assert.Error(t, err)
	assert.False(t, ok)
}
