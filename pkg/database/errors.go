package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup by id has no row
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable covers timeouts, cancellations and connection
	// failures. Callers must not read it as a negative answer.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUniqueViolation is returned when an insert hits a unique index
	ErrUniqueViolation = errors.New("unique violation")
	// ErrIntegrityViolation covers the rest of the integrity class (foreign
	// key, check, not null). Retrying the same write fails the same way.
	ErrIntegrityViolation = errors.New("integrity violation")
)

const (
	pqUniqueViolation              = "23505"
	pqIntegrityClass pq.ErrorClass = "23"
)

// Classify maps a driver error onto one of the package sentinels, keeping the
// original error in the chain. Errors that fit no sentinel are wrapped as
// ErrStoreUnavailable.
func Classify(err error, msg string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w: %w", msg, ErrNotFound, err)
	case IsUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", msg, ErrUniqueViolation, err)
	case isIntegrityViolation(err):
		return fmt.Errorf("%s: %w: %w", msg, ErrIntegrityViolation, err)
	default:
		return fmt.Errorf("%s: %w: %w", msg, ErrStoreUnavailable, err)
	}
}

// IsUniqueViolation reports whether err came from a unique index
func IsUniqueViolation(err error) bool {
	if errors.Is(err, ErrUniqueViolation) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isIntegrityViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Class() == pqIntegrityClass
}

// IsTransient reports whether err is a timeout or connectivity failure
func IsTransient(err error) bool {
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
