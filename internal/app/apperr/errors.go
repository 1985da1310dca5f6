// Package apperr defines the error kinds shared by services and controllers.
// Specific errors wrap one kind so callers can match either with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrDataIntegrity       = errors.New("data integrity")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

// New returns a sentinel error belonging to kind.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrInvalidMonthKey     = New(ErrValidation, "invalid month key")
	ErrMissingField        = New(ErrValidation, "missing required field")
	ErrInvalidScore        = New(ErrValidation, "invalid score")
	ErrMissingMergedLogin  = New(ErrValidation, "missing merged login")
	ErrUnknownMember       = New(ErrNotFound, "unknown member")
	ErrMemberNotFound      = New(ErrNotFound, "member not found")
	ErrEvaluationNotFound  = New(ErrNotFound, "evaluation not found")
	ErrEntryNotFound       = New(ErrNotFound, "entry not found")
	ErrInsufficientMembers = New(ErrConflict, "at least two members are required")
	ErrLoginTaken          = New(ErrConflict, "login already claimed")
)

// Upstream marks a storage or collaborator failure. Nil stays nil and errors
// already carrying a kind are returned unchanged.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrUpstreamUnavailable, ErrDataIntegrity} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}

// Validationf builds a validation error with a formatted detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
