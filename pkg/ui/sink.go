// Package ui defines the output sink the CLI reports progress and
// results through, separate from returned errors.
package ui

import (
	"fmt"
	"io"
)

// Sink receives user-facing progress and result messages. Commands take
// a Sink instead of writing to stdout/stderr directly so tests can
// capture output and a future quiet mode can swap in a no-op sink.
type Sink interface {
	Info(format string, args ...interface{})
	Success(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Plain is the default Sink: plain text with the ✓/⚠/✗ markers the rest
// of the CLI already uses for install results.
type Plain struct {
	Out io.Writer
	Err io.Writer
}

// NewPlain creates a Plain sink writing to out and err.
func NewPlain(out, err io.Writer) *Plain {
	return &Plain{Out: out, Err: err}
}

func (p *Plain) Info(format string, args ...interface{}) {
	fmt.Fprintf(p.Out, format+"\n", args...)
}

func (p *Plain) Success(format string, args ...interface{}) {
	fmt.Fprintf(p.Out, "✓ "+format+"\n", args...)
}

func (p *Plain) Warning(format string, args ...interface{}) {
	fmt.Fprintf(p.Err, "⚠ "+format+"\n", args...)
}

func (p *Plain) Error(format string, args ...interface{}) {
	fmt.Fprintf(p.Err, "✗ "+format+"\n", args...)
}
