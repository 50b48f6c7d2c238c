package repository

import (
	"errors"
	"strings"
)

// Sentinel errors shared by every repository. Handlers translate these
// into HTTP statuses; anything else surfaces as a 500.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrInvalidInput   = errors.New("invalid input")
)

// isDuplicateKeyError matches unique-constraint violations across the
// backends we run on: postgres in production, sqlite in tests.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"duplicate key",     // postgres message text
		"23505",             // postgres unique_violation code
		"UNIQUE constraint", // sqlite
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
