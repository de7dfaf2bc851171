package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Their messages carry the phrases MapError matches on.
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidTemplate  = errors.New("invalid template")
	ErrSlugConflict     = errors.New("template slug already in use")
	ErrSessionNotFound  = errors.New("upload session not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrNotStandardized  = errors.New("upload not standardized")
	ErrNoDestination    = errors.New("no sheet destination configured")
	ErrTooManyUploads   = errors.New("too many uploads in progress")
	ErrFileTooLarge     = errors.New("file too large")
	ErrNoFile           = errors.New("no file provided")
	ErrEmptyFile        = errors.New("empty file")
	ErrEncoding         = errors.New("encoding error")
)

// ParseError reports a CSV file that could not be parsed.
type ParseError struct {
	Line int // 1-based line in the input, 0 if unknown
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid csv: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("invalid csv: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PreconditionError reports a workflow step attempted before its inputs were
// ready, e.g. validating while required fields are still unmapped.
type PreconditionError struct {
	Reason  string
	Missing []string // display names of the fields involved, if any
}

func (e *PreconditionError) Error() string {
	if len(e.Missing) == 0 {
		return e.Reason
	}
	return e.Reason + ": " + strings.Join(e.Missing, ", ")
}

// IsPrecondition reports whether err is or wraps a *PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
