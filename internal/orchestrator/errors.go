package orchestrator

import (
	"errors"
	"fmt"
)

// Kind classifies orchestrator failures.
type Kind string

const (
	KindExtractionFailed Kind = "EXTRACTION_FAILED"
	KindParse            Kind = "PARSE_ERROR"
	KindSchemaInvalid    Kind = "SCHEMA_INVALID"
	KindModelCall        Kind = "MODEL_CALL"
	KindStreamFailure    Kind = "STREAM_FAILURE"
)

// Error is the typed failure returned by Generate, StreamChat and ExtractJSON.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

var (
	ErrExtractionFailed = &Error{Kind: KindExtractionFailed}
	ErrParse            = &Error{Kind: KindParse}
	ErrSchemaInvalid    = &Error{Kind: KindSchemaInvalid}
	ErrModelCall        = &Error{Kind: KindModelCall}
	ErrStreamFailure    = &Error{Kind: KindStreamFailure}
)

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the Kind of err, or "" when err is not an orchestrator error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
