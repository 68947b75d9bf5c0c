package sqlstore

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/ncruces/go-sqlite3"
)

// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
const uniqueViolationCode = "23505"

// isUniqueViolation reports whether err is a unique constraint violation from
// either supported driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return errors.Is(err, sqlite3.CONSTRAINT_UNIQUE)
}

// mapError wraps a driver error with the operation name. Unique violations
// surface as domain.ErrAlreadyExists; they can only happen when another
// process wrote the same pair between our check and our write.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrAlreadyExists, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
