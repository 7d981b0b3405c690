package codeql

import (
	"fmt"
	"strings"
)

// PackSpecifierError is returned when a query or pack specifier cannot be parsed.
type PackSpecifierError struct {
	Specifier string
	Reason    string
}

func (e *PackSpecifierError) Error() string {
	return fmt.Sprintf("invalid pack specifier %q: %s", e.Specifier, e.Reason)
}

// PackError is returned when a pack cannot be loaded from disk.
type PackError struct {
	Path string
	Msg  string
	Err  error
}

func (e *PackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pack %s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("pack %s: %s", e.Path, e.Msg)
}

func (e *PackError) Unwrap() error {
	return e.Err
}

// DatabaseError is returned when a database precondition fails or its
// configuration cannot be read.
type DatabaseError struct {
	Path string
	Msg  string
	Err  error
}

func (e *DatabaseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// ToolError is returned when the codeql executable cannot be started or
// exits with a non-zero status.
type ToolError struct {
	// Path is the executable that was run.
	Path string
	// Args are the arguments passed to the executable.
	Args []string
	// ExitCode is the exit status, or -1 when the process never ran.
	ExitCode int
	// Output is the diagnostic text captured from stderr, or stdout when
	// stderr was empty.
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("codeql %s failed", strings.Join(e.Args, " "))
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// IOError wraps a filesystem failure with the path involved.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// FormatError wraps a YAML or JSON decoding failure.
type FormatError struct {
	Path   string
	Format string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("failed to parse %s %s: %v", e.Format, e.Path, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
