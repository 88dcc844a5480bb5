// Package diag defines the compiler's error taxonomy. Every
// fatal condition the pipeline can raise is a typed *Error carrying a Kind,
// a human-readable message, and an optional source position, rather than an
// opaque string — callers distinguish failure modes with errors.As instead
// of string matching.
package diag

import (
	"fmt"

	"github.com/philtomson/hotwright/internal/ast"
)

// Kind identifies one of the fatal error categories the pipeline can raise.
type Kind string

const (
	UnsupportedConstruct Kind = "UnsupportedConstruct"
	UnsupportedCondition Kind = "UnsupportedCondition"
	DuplicateStateNumber Kind = "DuplicateStateNumber"
	NameCollision        Kind = "NameCollision"
	UnresolvedJump       Kind = "UnresolvedJump"
	FieldOverflow        Kind = "FieldOverflow"
	IOError              Kind = "IOError"
)

// Error is the concrete error type raised by every pipeline stage.
type Error struct {
	Kind    Kind
	Message string
	Pos     *ast.Pos // nil when no AST node is available (e.g. file I/O)

	// Field and observed/limit are populated only for FieldOverflow, so
	// callers can report "widen the layout" guidance without re-parsing the
	// message string.
	Field    string
	Observed int
	Limit    int

	Wrapped error
}

func (e *Error) Error() string {
	loc := ""
	if e.Pos != nil {
		loc = fmt.Sprintf(" at %d:%d", e.Pos.Line, e.Pos.Col)
	}
	return fmt.Sprintf("%s%s: %s", e.Kind, loc, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New creates a positionless *Error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At creates an *Error anchored to an AST position.
func At(kind Kind, pos ast.Pos, format string, args ...any) *Error {
	p := pos
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: &p}
}

// Overflow creates a FieldOverflow error with the offending field and its
// observed value against the declared limit, satisfying the requirement
// that overflow diagnostics let a user widen the layout.
func Overflow(field string, observed, limit int) *Error {
	return &Error{
		Kind:     FieldOverflow,
		Message:  fmt.Sprintf("field %s: observed value %d exceeds limit %d", field, observed, limit),
		Field:    field,
		Observed: observed,
		Limit:    limit,
	}
}
