package service

import (
	"errors"
	"fmt"

	"fieldops/internal/model"
	"fieldops/internal/repository"
)

// Error kinds. Errors returned by the services unwrap to one of these and
// handlers map them to HTTP statuses.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidState       = errors.New("invalid state")
	ErrIneligible         = errors.New("field worker is not eligible for assignment")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrPartialFailure     = errors.New("partial failure")
)

// kindError is a specific error with its own message that unwraps to a kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

var (
	ErrRequestNotFound     = &kindError{kind: ErrNotFound, msg: "service request not found"}
	ErrUserNotFound        = &kindError{kind: ErrNotFound, msg: "user not found"}
	ErrWorkerNotFound      = &kindError{kind: ErrNotFound, msg: "field worker not found"}
	ErrAlreadyRated        = &kindError{kind: ErrConflict, msg: "service request has already been rated"}
	ErrStaleRequest        = &kindError{kind: ErrConflict, msg: "service request was modified concurrently, reload and retry"}
	ErrDuplicateUsername   = &kindError{kind: ErrConflict, msg: "username already registered"}
	ErrDuplicateEmail      = &kindError{kind: ErrConflict, msg: "email already registered"}
	ErrAdminSignupDisabled = &kindError{kind: ErrForbidden, msg: "admin accounts cannot be registered publicly"}
	ErrAccountInactive     = &kindError{kind: ErrForbidden, msg: "account is inactive"}
	ErrWorkerNotApproved   = &kindError{kind: ErrForbidden, msg: "field worker account is pending approval"}
)

// TransitionError reports an illegal lifecycle move.
type TransitionError struct {
	From model.Status
	To   model.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// storageError wraps a repository failure, tagging it as
// ErrStorageUnavailable when the database could not be reached.
func storageError(op string, err error) error {
	if errors.Is(err, repository.ErrUnavailable) {
		return fmt.Errorf("%s: %w", op, errors.Join(ErrStorageUnavailable, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

// duplicateError maps a unique violation to the field that collided.
func duplicateError(err error) error {
	var dup *repository.DuplicateError
	if !errors.As(err, &dup) {
		return nil
	}
	switch dup.Constraint {
	case repository.ConstraintUsername:
		return ErrDuplicateUsername
	case repository.ConstraintEmail:
		return ErrDuplicateEmail
	}
	return newKindError(ErrConflict, "duplicate value violates %s", dup.Constraint)
}
