package validate

import (
	"errors"
	"fmt"
	"strings"
)

// Kinds of validation failure, matchable with errors.Is on a single
// *ValidationError or on the whole Errors list.
var (
	ErrDuplicateFileDeclaration      = errors.New("duplicate file declaration")
	ErrUndeclaredFileReference       = errors.New("undeclared file reference")
	ErrOrphanedFileDeclaration       = errors.New("orphaned file declaration")
	ErrLineRangeOutOfBounds          = errors.New("line range out of bounds")
	ErrOverlappingModifications      = errors.New("overlapping modifications")
	ErrConflictingDeleteWithOtherOps = errors.New("delete conflicts with other operations")
	ErrPathEscapesRoot               = errors.New("path escapes project root")
	ErrInvalidLineRange              = errors.New("invalid line range")
	ErrProtectedPath                 = errors.New("protected path")
	ErrUnreadableFile                = errors.New("unreadable file")
)

// ValidationError is one problem found in a change set.
type ValidationError struct {
	Kind   error
	Path   string
	Detail string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// Errors is the complete list of problems found by Validate.
type Errors []*ValidationError

func (errs Errors) Error() string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(errs))
	for _, e := range errs {
		b.WriteString("\n  - ")
		b.WriteString(e.Error())
	}
	return b.String()
}

func (errs Errors) Unwrap() []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// Of returns the errors of the given kind.
func (errs Errors) Of(kind error) Errors {
	var out Errors
	for _, e := range errs {
		if errors.Is(e.Kind, kind) {
			out = append(out, e)
		}
	}
	return out
}

func (errs *Errors) add(kind error, path, format string, a ...any) {
	*errs = append(*errs, &ValidationError{Kind: kind, Path: path, Detail: fmt.Sprintf(format, a...)})
}
