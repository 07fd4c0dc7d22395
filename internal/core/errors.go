package core

import (
	"errors"
	"fmt"
)

// File-level errors abort a run before any row is processed. The job
// wrapper treats them as a failed, retryable attempt.
var (
	ErrFileNotFound   = errors.New("import file not found")
	ErrEmptyFile      = errors.New("empty file")
	ErrMissingHeaders = errors.New("missing required column")
	ErrOwnerNotFound  = errors.New("import owner not found")
)

// ErrUserNotFound is returned by a UserFinder for an unknown id.
var ErrUserNotFound = errors.New("user not found")

// ErrConstraintViolation marks a uniqueness failure in persistent storage.
var ErrConstraintViolation = errors.New("unique constraint violation")

// ConstraintViolationError reports which field collided with an existing
// record. It matches ErrConstraintViolation with errors.Is.
type ConstraintViolationError struct {
	Field string // ColumnEmail or ColumnTaxID; empty when unknown
	Err   error  // Underlying driver error, may be nil
}

func (e *ConstraintViolationError) Error() string {
	switch e.Field {
	case ColumnEmail:
		return "email is already in use"
	case ColumnTaxID:
		return "CPF is already in use"
	case "":
		return "record already exists"
	default:
		return fmt.Sprintf("%s is already in use", e.Field)
	}
}

func (e *ConstraintViolationError) Is(target error) bool {
	return target == ErrConstraintViolation
}

func (e *ConstraintViolationError) Unwrap() error {
	return e.Err
}
