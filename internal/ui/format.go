// Package ui renders console output for the sparkload commands.
package ui

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	"sparkload/pkg/errors"
)

var (
	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	out io.Writer = os.Stdout

	// Color functions
	ColorSuccess  = colorFunc(ansi.Green)
	ColorError    = colorFunc(ansi.Red)
	ColorWarning  = colorFunc(ansi.Yellow)
	ColorInfo     = colorFunc(ansi.Cyan)
	ColorProgress = colorFunc(ansi.Blue)
	ColorBold     = colorFunc("default+b")
	ColorDim      = colorFunc("default+h")
)

// colorFunc returns a function that colors text if supported
func colorFunc(color string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, color)
		}
		return text
	}
}

// SetOutput redirects console output and returns a function restoring the
// previous writer. Color is disabled unless w is a terminal.
func SetOutput(w io.Writer) (restore func()) {
	prevOut, prevColor := out, supportsColor
	out = w
	supportsColor = false
	if f, ok := w.(*os.File); ok {
		supportsColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return func() {
		out, supportsColor = prevOut, prevColor
	}
}

// Output returns the current console writer
func Output() io.Writer {
	return out
}

// ColorEnabled reports whether console output is colored.
func ColorEnabled() bool {
	return supportsColor
}

// ShowHeader displays a formatted header
func ShowHeader(title string) {
	width := 50
	if len(title)+4 > width {
		width = len(title) + 4
	}
	padding := (width - len(title) - 2) / 2

	fmt.Fprintln(out, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(out, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", width-2-padding-len(title)),
	)
	fmt.Fprintln(out, "+"+strings.Repeat("-", width-2)+"+")
}

// ShowError displays an error with its context and suggestions.
func ShowError(err error) {
	fmt.Fprintf(out, "\n%s\n", ColorError("ERROR:"))

	lines := strings.Split(err.Error(), "\n")
	for i, line := range lines {
		if i == 0 {
			fmt.Fprintf(out, "  %s\n", line)
		} else {
			fmt.Fprintf(out, "  %s\n", ColorDim(line))
		}
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		for _, key := range []string{"kind", "object", "field", "uri", "file"} {
			if v, ok := appErr.Context[key]; ok {
				fmt.Fprintf(out, "  %-8s %v\n", ColorDim(key+":"), v)
			}
		}
		if len(appErr.Suggestions) > 0 {
			for _, s := range appErr.Suggestions {
				fmt.Fprintf(out, "  %s %s\n", ColorInfo("TIP:"), ColorInfo(s))
			}
			return
		}
	}

	if suggestion := getSuggestion(err.Error()); suggestion != "" {
		fmt.Fprintf(out, "\n  %s %s\n", ColorInfo("TIP:"), ColorInfo(suggestion))
	}
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	fmt.Fprintf(out, "%s %s\n", ColorSuccess("SUCCESS:"), message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	fmt.Fprintf(out, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	fmt.Fprintf(out, "%s %s\n", ColorInfo("INFO:"), message)
}

// PrintSection prints a section header
func PrintSection(title string) {
	fmt.Fprintf(out, "\n%s %s\n", ColorBold(">"), ColorBold(title))
	fmt.Fprintln(out, strings.Repeat("-", 50))
}

// PrintKeyValue prints a key-value pair in a formatted way
func PrintKeyValue(key, value string) {
	fmt.Fprintf(out, "  %-20s %s\n", ColorDim(key+":"), value)
}

// getSuggestion returns a hint for driver errors that carry no
// suggestions of their own.
func getSuggestion(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "password authentication failed"),
		strings.Contains(lower, "authentication failed"):
		return "Check DB_USER and DB_PASSWORD in the CLUSTER section"
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"):
		return "Verify HOST and DB_PORT and that the cluster accepts connections from this network"
	case strings.Contains(lower, "not authorized to perform: sts:assumerole"),
		strings.Contains(lower, "s3serviceexception"):
		return "Check that IAM_ROLE.ARN is attached to the cluster and can read the S3 sources"
	case strings.Contains(lower, "stl_load_errors"):
		return "Query stl_load_errors for the rejected rows"
	case strings.Contains(lower, "syntax error"):
		return "Run sparkload catalog to inspect the rendered statement"
	case strings.Contains(lower, "permission denied"):
		return "Ensure the user can create tables in the target schema"
	case strings.Contains(lower, "does not exist"):
		return "Run sparkload create-tables before loading"
	default:
		return ""
	}
}
