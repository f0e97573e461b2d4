package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "SPKL1001"
	ErrCodeConnectionTimeout    ErrorCode = "SPKL1002"
	ErrCodeAuthenticationFailed ErrorCode = "SPKL1003"
	ErrCodeDriverUnavailable    ErrorCode = "SPKL1004"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "SPKL2001"
	ErrCodeConfigInvalid  ErrorCode = "SPKL2002"
	ErrCodeConfigMissing  ErrorCode = "SPKL2003"
	ErrCodeEncryption     ErrorCode = "SPKL2004"

	// Object storage errors (3xxx)
	ErrCodeStorageAccess  ErrorCode = "SPKL3001"
	ErrCodeStorageEmpty   ErrorCode = "SPKL3002"
	ErrCodeStorageInvalid ErrorCode = "SPKL3003"
	ErrCodeStorageUpload  ErrorCode = "SPKL3004"

	// SQL execution errors (4xxx)
	ErrCodeSQLSyntax         ErrorCode = "SPKL4001"
	ErrCodeSQLPermission     ErrorCode = "SPKL4002"
	ErrCodeSQLTimeout        ErrorCode = "SPKL4003"
	ErrCodeSQLTransaction    ErrorCode = "SPKL4004"
	ErrCodeSQLObjectNotFound ErrorCode = "SPKL4005"
	ErrCodeSQLObjectExists   ErrorCode = "SPKL4006"
	ErrCodeSQLExecution      ErrorCode = "SPKL4007"
	ErrCodeBulkLoad          ErrorCode = "SPKL4008"

	// Validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "SPKL6001"
	ErrCodeRequiredField    ErrorCode = "SPKL6002"

	// System errors (9xxx)
	ErrCodeInternal ErrorCode = "SPKL9001"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // Run cannot start
	SeverityError    ErrorSeverity = "ERROR"    // Run aborted part way
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Timestamp   time.Time
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError by code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// Carry the context of a wrapped AppError forward
	var ae *AppError
	if errors.As(err, &ae) {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// Common error constructors

// ConnectionError creates a connection-related error. Connection failures
// happen before any statement runs, so they are always critical.
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityCritical).
		WithSuggestions(
			"Check your network connection",
			"Verify the warehouse endpoint and port are reachable",
			"Check security group / firewall settings",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSeverity(SeverityCritical).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Refer to dwh.cfg.example for the expected layout",
		)
}

// SQLError creates an SQL execution error, classifying the driver message
// into a more specific code where it can.
func SQLError(message string, query string, cause error) *AppError {
	if cause == nil {
		return nil
	}
	err := Wrap(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(strings.TrimSpace(query), 200))

	lower := strings.ToLower(cause.Error())
	switch {
	case strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "access denied"),
		strings.Contains(lower, "not authorized"),
		strings.Contains(lower, "insufficient privileges"):
		err.Code = ErrCodeSQLPermission
		_ = err.WithSuggestions(
			"Check the database user's privileges",
			"Verify the IAM role / storage integration can read the source bucket",
		)
	case strings.Contains(lower, "already exists"):
		err.Code = ErrCodeSQLObjectExists
		_ = err.WithSuggestions("Run create-tables to drop and recreate the schema")
	case strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "not found"),
		strings.Contains(lower, "not exist"):
		err.Code = ErrCodeSQLObjectNotFound
		_ = err.WithSuggestions("Run create-tables before etl")
	case strings.Contains(lower, "syntax error"):
		err.Code = ErrCodeSQLSyntax
	case strings.Contains(lower, "stl_load_errors"),
		strings.Contains(lower, "load into table"),
		strings.Contains(lower, "error parsing json"):
		err.Code = ErrCodeBulkLoad
		_ = err.WithSuggestions(
			"Inspect stl_load_errors for the failing file and column",
			"Check that the JSONPaths file matches the staging_events column order",
		)
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "canceling statement"),
		strings.Contains(lower, "context deadline exceeded"):
		err.Code = ErrCodeSQLTimeout
		_ = err.WithSuggestions("Increase WAREHOUSE.TIMEOUT in the configuration")
	}

	return err
}

// StorageError creates an object-storage error
func StorageError(message string, uri string, cause error) *AppError {
	var err *AppError
	if cause != nil {
		err = Wrap(cause, ErrCodeStorageAccess, message)
	} else {
		err = New(ErrCodeStorageAccess, message)
	}
	return err.WithContext("uri", uri)
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
