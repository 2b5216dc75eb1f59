package repository

import (
	"strings"

	apperrors "github.com/welldanyogia/webrana-chat-backend/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Common repository errors. They alias the application sentinels so callers
// can match with errors.Is without importing this package.
var (
	ErrNotFound       = apperrors.ErrNotFound
	ErrDuplicateEntry = apperrors.ErrDuplicateEntry
	ErrInvalidInput   = apperrors.ErrInvalidInput
)

// isDuplicateKeyError checks if the error is a duplicate key violation
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "23505") // PostgreSQL unique violation code
}

// forUpdate adds a row lock on dialects that support it. sqlite already
// serializes writers through its single connection.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}
