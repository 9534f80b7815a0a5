package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether the provided error is a unique
// constraint violation. When a constraint name is provided, the error must
// reference it. The sqlite message form is matched too so repository tests
// exercise the same code path as production postgres.
func IsUniqueViolation(err error, constraintName ...string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != uniqueViolationCode {
			return false
		}
		if len(constraintName) > 0 && constraintName[0] != "" {
			return pgErr.ConstraintName == constraintName[0]
		}
		return true
	}

	msg := err.Error()
	if len(constraintName) > 0 && constraintName[0] != "" {
		return strings.Contains(msg, constraintName[0])
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
