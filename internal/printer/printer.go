// Package printer writes colored status lines for the CLI.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

//nolint:gochecknoglobals // shared palette
var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)

	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// SetOutput redirects status and error lines. Used by tests.
func SetOutput(stdout, stderr io.Writer) {
	out = stdout
	errOut = stderr
}

// Success prints a green line prefixed with a checkmark.
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	_, _ = green.Fprintln(out, msg)
}

// Step prints a cyan progress line.
func Step(format string, a ...any) {
	_, _ = cyan.Fprintf(out, "→ %s\n", fmt.Sprintf(format, a...))
}

// Info prints an uncolored line.
func Info(format string, a ...any) {
	_, _ = fmt.Fprintf(out, format+"\n", a...)
}

// Warning prints a yellow line.
func Warning(format string, a ...any) {
	_, _ = yellow.Fprintf(out, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Error prints a titled error with suggestions to stderr and returns a short error for cobra.
func Error(title, explanation string, suggestions []string) error {
	_, _ = red.Fprintf(errOut, "%s\n\n", title)
	_, _ = fmt.Fprintf(errOut, "%s\n", explanation)
	if len(suggestions) > 0 {
		_, _ = fmt.Fprintln(errOut, "\nTry:")
		for i, s := range suggestions {
			_, _ = fmt.Fprintf(errOut, "  %d. %s\n", i+1, s)
		}
	}
	return fmt.Errorf("%s", title)
}
