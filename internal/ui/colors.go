package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Color scheme for pkgtx
var (
	Success = color.New(color.FgGreen)
	Error   = color.New(color.FgRed, color.Bold)
	Warning = color.New(color.FgYellow)
	Info    = color.New(color.FgCyan)

	Bold  = color.New(color.Bold)
	Muted = color.New(color.Faint)

	CrossMark = "✗"
)

// statusColors colors transaction statuses and action types in tables
var statusColors = map[string]*color.Color{
	"completed":     Success,
	"nothing-to-do": Muted,
	"failed":        Error,
	"install":       Success,
	"upgrade":       Info,
	"erase":         Warning,
	"error":         Error,
}

// InitColors applies a logging.color mode ("auto", "always" or "never")
func InitColors(mode string) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		// Respect NO_COLOR environment variable
		if os.Getenv("NO_COLOR") != "" {
			color.NoColor = true
		}
		// Respect TERM environment variable
		if os.Getenv("TERM") == "dumb" {
			color.NoColor = true
		}
	}
}

// PrintError prints a one-line error message to stderr
func PrintError(format string, args ...interface{}) {
	FprintError(os.Stderr, format, args...)
}

// FprintError writes a one-line error message to w. Embedded newlines are
// folded so the message always occupies a single line.
func FprintError(w io.Writer, format string, args ...interface{}) {
	msg := oneLine(fmt.Sprintf(format, args...))
	Error.Fprintf(w, "%s Error: %s\n", CrossMark, msg)
}

// PrintWarning prints a warning message to stderr
func PrintWarning(format string, args ...interface{}) {
	Warning.Fprintf(os.Stderr, "Warning: %s\n", fmt.Sprintf(format, args...))
}

// Fprintln writes a plain line to w, used for verbose error details
func Fprintln(w io.Writer, text string) {
	Muted.Fprintln(w, text)
}

// ColorizeStatus returns a colored status or action type string
func ColorizeStatus(status string) string {
	if c, ok := statusColors[status]; ok {
		return c.Sprint(status)
	}
	return status
}

func oneLine(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return strings.Join(fields, "; ")
}

// DisableColors disables all color output
func DisableColors() {
	color.NoColor = true
}

// EnableColors enables color output
func EnableColors() {
	color.NoColor = false
}
