package sheet

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies extraction failures.
type Kind int

const (
	KindUnknown Kind = iota
	UpstreamUnavailable
	NotFound
	RequiredSheetMissing
	ValidationParseError
	PartialCellError
)

func (k Kind) String() string {
	switch k {
	case UpstreamUnavailable:
		return "upstream_unavailable"
	case NotFound:
		return "not_found"
	case RequiredSheetMissing:
		return "required_sheet_missing"
	case ValidationParseError:
		return "validation_parse_error"
	case PartialCellError:
		return "partial_cell_error"
	default:
		return "unknown"
	}
}

// Error is an extraction error tagged with its kind and location.
type Error struct {
	Kind  Kind
	Op    string // "list_worksheets", "used_range", "cell", "config", ...
	Sheet string
	Cell  string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if e.Sheet != "" {
		fmt.Fprintf(&b, " (sheet %q", e.Sheet)
		if e.Cell != "" {
			fmt.Fprintf(&b, ", cell %s", e.Cell)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// Kind sentinels for errors.Is.
var (
	ErrUpstreamUnavailable  = &Error{Kind: UpstreamUnavailable}
	ErrNotFound             = &Error{Kind: NotFound}
	ErrRequiredSheetMissing = &Error{Kind: RequiredSheetMissing}
	ErrValidationParse      = &Error{Kind: ValidationParseError}
	ErrPartialCell          = &Error{Kind: PartialCellError}
)

// NewError creates a kinded error.
func NewError(kind Kind, op, sheetName string, err error) *Error {
	return &Error{Kind: kind, Op: op, Sheet: sheetName, Err: err}
}

// Upstream wraps a document store failure.
func Upstream(op string, err error) *Error {
	return &Error{Kind: UpstreamUnavailable, Op: op, Err: err}
}

// CellError records a per-cell fetch failure.
func CellError(sheetName, address string, err error) *Error {
	return &Error{Kind: PartialCellError, Op: "cell", Sheet: sheetName, Cell: address, Err: err}
}

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
