package value

import (
	"fmt"
	"strings"
)

// ErrorKind names one of the five error kinds from §7 (not Go type names —
// all but ParseFailure and HostCallContract surface as a *RuntimeError).
type ErrorKind string

const (
	KindTypeMismatch      ErrorKind = "TypeMismatch"
	KindIndexOutOfRange   ErrorKind = "IndexOutOfRange"
	KindResourceExhausted ErrorKind = "ResourceExhaustion"
)

// Frame describes one scope active when a RuntimeError was raised: its
// diagnostic tag (funcBody, ifBody, loopBody, switchBody, ...) and the byte
// offset execution was at when the frame was entered. This is the
// scope-stack analogue of the teacher's errors.StackFrame, which instead
// recorded a source line/column — there is no source text here, only byte
// offsets into the compiled stream.
type Frame struct {
	Tag    string
	Offset int
}

// String renders a frame the way the teacher's StackFrame.String() renders
// a source position.
func (f Frame) String() string {
	return fmt.Sprintf("%s [offset: %d]", f.Tag, f.Offset)
}

// Trace is an ordered list of Frames, innermost first, mirroring the
// teacher's errors.StackTrace.
type Trace []Frame

// String renders the trace outermost-first, one frame per line, matching
// the teacher's reverse-order convention.
func (t Trace) String() string {
	var b strings.Builder
	for i := len(t) - 1; i >= 0; i-- {
		b.WriteString(t[i].String())
		if i > 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RuntimeError is the structured error value TypeMismatch, IndexOutOfRange
// (write-path) and ResourceExhaustion are surfaced as, per §4's resolution
// of the open question on panicking vs. returning a structured error.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
	Trace   Trace
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if len(e.Trace) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s\nStack trace:\n%s", e.Kind, e.Message, e.Trace.String())
}

// NewRuntimeError builds a RuntimeError with the given kind and message.
func NewRuntimeError(kind ErrorKind, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// TypeError is a convenience constructor for the most common RuntimeError
// shape: an operation that received an unexpected tag.
func TypeError(context string, expected string, actual Tag) *RuntimeError {
	return NewRuntimeError(KindTypeMismatch, "%s expects %s but got %s", context, expected, actual)
}

// WithTrace returns a copy of e with the trace attached.
func (e *RuntimeError) WithTrace(t Trace) *RuntimeError {
	return &RuntimeError{Kind: e.Kind, Message: e.Message, Trace: t}
}
