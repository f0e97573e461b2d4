package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "basic error",
			err:      New(ErrCodeConnectionFailed, "Connection failed"),
			expected: "[SPKL1001] ERROR: Connection failed",
		},
		{
			name: "error with suggestions",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithSuggestions("Check network", "Verify credentials"),
			expected: "[SPKL1001] ERROR: Connection failed\nSuggestions:\n  1. Check network\n  2. Verify credentials",
		},
		{
			name: "error with context",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithContext("host", "example.com").
				WithContext("port", 5439),
			expected: "[SPKL1001] ERROR: Connection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.Equal(t, ErrCodeConnectionFailed, tt.err.Code)
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	baseErr := fmt.Errorf("dial tcp: connection refused")

	appErr := Wrap(baseErr, ErrCodeConnectionFailed, "Failed to connect to warehouse")

	require.NotNil(t, appErr)
	assert.Equal(t, baseErr, appErr.Cause)
	assert.True(t, errors.Is(appErr, baseErr))
	assert.Contains(t, appErr.Error(), "Caused by: dial tcp: connection refused")

	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestWrapInheritsContext(t *testing.T) {
	inner := New(ErrCodeSQLExecution, "statement failed").WithContext("table", "songs")
	outer := Wrap(inner, ErrCodeInternal, "pipeline failed")

	assert.Equal(t, "songs", outer.Context["table"])
	assert.True(t, errors.Is(outer, New(ErrCodeSQLExecution, "")))
}

func TestSQLErrorClassification(t *testing.T) {
	tests := []struct {
		cause string
		code  ErrorCode
	}{
		{`pq: permission denied for relation songs`, ErrCodeSQLPermission},
		{`pq: Not authorized to get credentials of role arn:aws:iam::1:role/x`, ErrCodeSQLPermission},
		{`pq: relation "staging_events" already exists`, ErrCodeSQLObjectExists},
		{`pq: relation "songs" does not exist`, ErrCodeSQLObjectNotFound},
		{`pq: syntax error at or near "SELEC"`, ErrCodeSQLSyntax},
		{`pq: Load into table 'staging_events' failed.  Check 'stl_load_errors' system table for details.`, ErrCodeBulkLoad},
		{`context deadline exceeded`, ErrCodeSQLTimeout},
		{`pq: division by zero`, ErrCodeSQLExecution},
	}

	for _, tt := range tests {
		t.Run(tt.cause, func(t *testing.T) {
			err := SQLError("statement failed", "SELECT 1", errors.New(tt.cause))
			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, "SELECT 1", err.Context["query"])
		})
	}

	assert.Nil(t, SQLError("nothing", "SELECT 1", nil))
}

func TestSQLErrorTruncatesQuery(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	err := SQLError("statement failed", string(long), errors.New("boom"))
	assert.Len(t, err.Context["query"], 203)
}

func TestStorageError(t *testing.T) {
	err := StorageError("No objects found", "s3://bucket/prefix", nil)
	assert.Equal(t, ErrCodeStorageAccess, err.Code)
	assert.Equal(t, "s3://bucket/prefix", err.Context["uri"])

	wrapped := StorageError("List failed", "s3://bucket", errors.New("AccessDenied"))
	assert.Contains(t, wrapped.Error(), "AccessDenied")
}

func TestErrorCodes(t *testing.T) {
	err1 := New(ErrCodeConnectionFailed, "Test")
	assert.Equal(t, ErrCodeConnectionFailed, GetErrorCode(err1))

	err2 := fmt.Errorf("regular error")
	assert.Equal(t, ErrCodeInternal, GetErrorCode(err2))

	err3 := fmt.Errorf("outer: %w", ConfigError("missing host", "CLUSTER.HOST"))
	assert.Equal(t, ErrCodeConfigInvalid, GetErrorCode(err3))
}

func TestErrorSeverity(t *testing.T) {
	assert.Equal(t, SeverityCritical, ConnectionError("down", errors.New("refused")).Severity)
	assert.Equal(t, SeverityCritical, ConfigError("bad", "S3.LOG_DATA").Severity)
	assert.Equal(t, SeverityError, SQLError("bad", "x", errors.New("y")).Severity)
}

func BenchmarkErrorCreation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = New(ErrCodeConnectionFailed, "Connection failed").
			WithContext("host", "example.com").
			WithSuggestions("Check connection")
	}
}
