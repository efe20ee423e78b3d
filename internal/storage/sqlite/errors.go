package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/warepick/warepick/internal/storage"
)

// wrapDBError wraps a database error with operation context.
// It converts sql.ErrNoRows to storage.ErrNotFound and unique
// constraint violations to storage.ErrDuplicate so callers can use
// errors.Is without knowing the driver.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if isUniqueConstraint(err) {
		return fmt.Errorf("%s: %w", op, storage.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// wrapDBErrorf is wrapDBError with a formatted operation context
func wrapDBErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return wrapDBError(fmt.Sprintf(format, args...), err)
}

// isUniqueConstraint checks if an error is a UNIQUE constraint violation
func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
