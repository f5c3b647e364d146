package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Verbosity levels
type Verbosity int

const (
	// VerbosityQuiet shows errors only
	VerbosityQuiet Verbosity = iota
	// VerbosityNormal shows errors, warnings, and key operations (default)
	VerbosityNormal
	// VerbosityDetailed shows above + per-package progress
	VerbosityDetailed
	// VerbosityDiagnostic shows above + debug output
	VerbosityDiagnostic
)

// ParseVerbosity maps a --verbosity value to a Verbosity. Unknown values
// select VerbosityNormal.
func ParseVerbosity(s string) Verbosity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "q", "quiet":
		return VerbosityQuiet
	case "d", "detailed":
		return VerbosityDetailed
	case "diag", "diagnostic":
		return VerbosityDiagnostic
	default:
		return VerbosityNormal
	}
}

// Console provides output abstraction
type Console struct {
	out       io.Writer
	err       io.Writer
	verbosity Verbosity
	mu        sync.Mutex
	colors    bool
}

// NewConsole creates a new console. Colors are enabled when out is a
// terminal.
func NewConsole(out, err io.Writer, verbosity Verbosity) *Console {
	return &Console{
		out:       out,
		err:       err,
		verbosity: verbosity,
		colors:    IsColorEnabled(out),
	}
}

// DefaultConsole creates a console with stdout/stderr and normal verbosity
func DefaultConsole() *Console {
	return NewConsole(os.Stdout, os.Stderr, VerbosityNormal)
}

// Out returns the standard output writer.
func (c *Console) Out() io.Writer { return c.out }

// Err returns the error writer.
func (c *Console) Err() io.Writer { return c.err }

// SetVerbosity sets the verbosity level
func (c *Console) SetVerbosity(v Verbosity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verbosity = v
}

// Verbosity returns the current verbosity level
func (c *Console) Verbosity() Verbosity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verbosity
}

// SetColors enables or disables color output
func (c *Console) SetColors(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.colors = enabled
}

// Println writes line to output
func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, a...)
}

// Printf writes formatted output
func (c *Console) Printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, a...)
}

// Success writes success message (green)
func (c *Console) Success(format string, a ...any) {
	c.write(c.out, VerbosityNormal, ColorSuccess, "", format, a...)
}

// Error writes error message (red)
func (c *Console) Error(format string, a ...any) {
	c.write(c.err, VerbosityQuiet, ColorError, "Error: ", format, a...)
}

// Warning writes warning message (yellow)
func (c *Console) Warning(format string, a ...any) {
	c.write(c.out, VerbosityNormal, ColorWarning, "Warning: ", format, a...)
}

// Info writes info message (cyan)
func (c *Console) Info(format string, a ...any) {
	c.write(c.out, VerbosityNormal, ColorInfo, "", format, a...)
}

// Header writes a bold heading
func (c *Console) Header(format string, a ...any) {
	c.write(c.out, VerbosityNormal, ColorHeader, "", format, a...)
}

// Detail writes detailed message
func (c *Console) Detail(format string, a ...any) {
	c.write(c.out, VerbosityDetailed, nil, "", format, a...)
}

// Debug writes debug message (white)
func (c *Console) Debug(format string, a ...any) {
	c.write(c.out, VerbosityDiagnostic, ColorDebug, "[DEBUG] ", format, a...)
}

func (c *Console) write(w io.Writer, min Verbosity, col *color.Color, prefix, format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.verbosity < min {
		return
	}
	msg := prefix + fmt.Sprintf(format, a...) + "\n"
	if c.colors && col != nil {
		_, _ = col.Fprint(w, msg)
		return
	}
	_, _ = io.WriteString(w, msg)
}
