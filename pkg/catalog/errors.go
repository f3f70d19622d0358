package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

// Errors returned by every catalog service. Validation failures wrap
// ErrInvalid with a message that is safe to show the caller.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
	ErrInvalid  = errors.New("invalid input")

	ErrInsufficientFunds = fmt.Errorf("%w: insufficient balance", ErrInvalid)
	ErrAlreadyReviewed   = fmt.Errorf("%w: confirmation already reviewed", ErrConflict)

	errMissingReference = fmt.Errorf("%w: referenced record does not exist", ErrInvalid)
	errOutOfRange       = fmt.Errorf("%w: value out of range", ErrInvalid)
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// classify maps driver errors onto the catalog taxonomy. Anything it does not
// recognise is wrapped with what as a store failure.
func classify(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, sqlstore.ErrNotFound):
		return ErrNotFound
	case sqlstore.IsUniqueViolation(err):
		return ErrConflict
	case sqlstore.IsForeignKeyViolation(err):
		return errMissingReference
	case sqlstore.IsCheckViolation(err):
		return errOutOfRange
	default:
		return fmt.Errorf("failed to %s: %w", what, err)
	}
}

func isOutOfRange(err error) bool {
	return errors.Is(err, errOutOfRange)
}
