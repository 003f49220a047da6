package store

import "errors"

// ErrMigration indicates a schema migration could not be registered or applied.
var ErrMigration = errors.New("migration failed")

// ErrValidation indicates a request carried malformed input.
var ErrValidation = errors.New("invalid request")

// ErrNotFound indicates no counter exists with the requested id.
var ErrNotFound = errors.New("counter not found")

// ErrStorage indicates the underlying database was unavailable or failed.
var ErrStorage = errors.New("storage failure")

// Kind returns a stable name for the class of err, suitable for reporting
// to a caller that cannot unwrap Go errors.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrMigration):
		return "migration"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}
