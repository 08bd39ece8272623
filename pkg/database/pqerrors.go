package database

import (
	"errors"

	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a PostgreSQL unique-index violation.
// When constraint is non-empty the violation must be on that constraint.
// Unique indexes are the storage-level backstop behind every read-then-write
// uniqueness check, so a losing concurrent writer fails cleanly instead of
// silently duplicating.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != uniqueViolationCode {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
