package errors

import (
	"context"
	"errors"
	"log/slog"
	"sort"
)

// Handle logs err with its code, severity and context. Errors that are not
// AppErrors are logged as internal.
func Handle(logger *slog.Logger, err error) {
	if err == nil || logger == nil {
		return
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		logger.Error(err.Error(), "code", string(ErrCodeInternal))
		return
	}

	attrs := []any{
		"code", string(appErr.Code),
		"severity", string(appErr.Severity),
	}
	keys := make([]string, 0, len(appErr.Context))
	for k := range appErr.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, appErr.Context[k])
	}
	if appErr.Cause != nil {
		attrs = append(attrs, "cause", appErr.Cause.Error())
	}

	logger.Log(context.Background(), level(appErr.Severity), err.Error(), attrs...)
}

func level(s ErrorSeverity) slog.Level {
	switch s {
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityInfo:
		return slog.LevelInfo
	}
	return slog.LevelError
}
