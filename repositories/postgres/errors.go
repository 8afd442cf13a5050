package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/travel-control-plane/repositories"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures
const uniqueViolation = "23505"

// mapError translates driver errors into repository sentinels.
// what names the record for the error message, e.g. "booking 3f2a...".
func mapError(err error, op, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s not found: %w", what, repositories.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s already exists (%s): %w", what, pqErr.Constraint, repositories.ErrDuplicate)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// expectOneRow converts a zero row count into ErrNotFound
func expectOneRow(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %w", what, repositories.ErrNotFound)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}
