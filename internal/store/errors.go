package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflict")

// ErrRestricted is returned when a delete or update is blocked by a
// foreign key that still references the row.
var ErrRestricted = errors.New("restricted by reference")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translate maps driver errors onto the package sentinels, keeping the
// original error available through errors.Unwrap.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		return &constraintError{sentinel: ErrConflict, constraint: pqErr.Constraint, err: err}
	case pqForeignKeyViolation:
		return &constraintError{sentinel: ErrRestricted, constraint: pqErr.Constraint, err: err}
	}
	return err
}

type constraintError struct {
	sentinel   error
	constraint string
	err        error
}

func (e *constraintError) Error() string {
	return e.sentinel.Error() + " (" + e.constraint + "): " + e.err.Error()
}

func (e *constraintError) Is(target error) bool {
	return target == e.sentinel
}

func (e *constraintError) Unwrap() error {
	return e.err
}

// Constraint returns the name of the violated constraint, or "" when err is
// not a constraint violation.
func Constraint(err error) string {
	var cErr *constraintError
	if errors.As(err, &cErr) {
		return cErr.constraint
	}
	return ""
}
