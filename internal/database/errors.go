// internal/database/errors.go
package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("database: not found")
	// ErrUniqueViolation is returned when an insert hits a unique constraint
	// (Postgres SQLSTATE 23505). The create loop retries on this one.
	ErrUniqueViolation = errors.New("database: unique violation")
	// ErrConstraintViolation covers every other integrity-constraint failure
	// (foreign key, not-null, check).
	ErrConstraintViolation = errors.New("database: constraint violation")
)

// mapError translates pgx errors into the package sentinels so callers can
// branch with errors.Is instead of matching SQLSTATE strings themselves.
// The original error stays in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
		}
		// SQLSTATE class 23 = integrity constraint violation
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23" {
			return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
		}
	}
	return err
}
