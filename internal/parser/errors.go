package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedXML indicates the document is not well-formed markup.
	ErrMalformedXML = errors.New("malformed XML")

	// ErrSchemaViolation indicates well-formed markup that breaks the dialect.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrInvalidLineRange indicates a start-line/end-line value that is not a
	// usable positive range.
	ErrInvalidLineRange = errors.New("invalid line range")
)

// ParseError describes why a document was rejected.
type ParseError struct {
	Kind   error
	Detail string
	// Line is the input line reported by the XML decoder, or 0.
	Line int
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%v: line %d: %s", e.Kind, e.Line, e.Detail)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

func schemaErr(format string, a ...any) *ParseError {
	return &ParseError{Kind: ErrSchemaViolation, Detail: fmt.Sprintf(format, a...)}
}

func rangeErr(format string, a ...any) *ParseError {
	return &ParseError{Kind: ErrInvalidLineRange, Detail: fmt.Sprintf(format, a...)}
}
