package store

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-asso/internal/models"
	"github.com/diewo77/go-asso/internal/password"
	"gorm.io/gorm"
)

// Sentinel errors surfaced to callers. Lookups that miss return (nil, nil)
// rather than an error.
var (
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrDuplicateEmail      = errors.New("duplicate_email")
	ErrWeakPassword        = password.ErrWeakPassword
	ErrInvariantViolation  = errors.New("invariant_violation")
	ErrConcurrencyConflict = errors.New("concurrency_conflict")
	ErrNotFound            = errors.New("not_found")
)

// PersistenceError wraps a database fault with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return "persistence: " + e.Op + ": " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

// wrap classifies a gorm error. Domain sentinels pass through untouched, an
// existing PersistenceError is unwrapped to itself, unique violations become ErrConcurrencyConflict, everything else is a
// PersistenceError.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	switch {
	case errors.As(err, &pe):
		return pe
	case errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrInvariantViolation),
		errors.Is(err, ErrConcurrencyConflict),
		errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, models.ErrInvalidTypeEntite),
		errors.Is(err, models.ErrAuditLogImmutable):
		return fmt.Errorf("%s: %w: %w", op, ErrInvariantViolation, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrConcurrencyConflict)
	}
	return &PersistenceError{Op: op, Err: err}
}
