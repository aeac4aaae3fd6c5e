package storage

import (
	"database/sql"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type constraint int

const (
	constraintNone constraint = iota
	constraintUnique
	constraintForeignKey
	constraintCheck
	constraintTrigger
)

// constraintOf classifies a constraint violation reported by the driver.
func constraintOf(err error) constraint {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return constraintNone
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return constraintUnique
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return constraintForeignKey
	case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return constraintCheck
	case sqlite3.SQLITE_CONSTRAINT_TRIGGER:
		return constraintTrigger
	case sqlite3.SQLITE_CONSTRAINT:
		// Primary code only; fall back to the message.
		msg := se.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return constraintUnique
		case strings.Contains(msg, "FOREIGN KEY"):
			return constraintForeignKey
		case strings.Contains(msg, "CHECK"), strings.Contains(msg, "NOT NULL"):
			return constraintCheck
		default:
			return constraintTrigger
		}
	}
	return constraintNone
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
