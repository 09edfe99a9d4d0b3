package db

import "strings"

// IsUniqueViolation reports whether the provided error references a unique
// violation constraint. A provided constraintName matches the Postgres
// message; SQLite names the columns instead of the index, so the generic
// check stays as the fallback for both drivers.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
