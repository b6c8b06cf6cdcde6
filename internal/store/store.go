package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicateID is returned by Create when the client-supplied id is taken.
// Ids are unique across users.
var ErrDuplicateID = errors.New("id already in use")

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

// dbTime normalizes a timestamp before it is written or compared in SQL.
// Reminder arithmetic works at millisecond resolution and every stored
// timestamp is UTC so that text comparisons order correctly.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: dbTime(*t), Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newID returns id, or a fresh UUID when the client did not supply one.
func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
