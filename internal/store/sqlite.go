package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// openSQLite opens an embedded sqlite database at path (or ":memory:" for
// an in-process ephemeral store). Writes are serialized through a single
// connection: sqlite takes a file-level write lock per transaction, so a
// pool of concurrent writers only produces SQLITE_BUSY errors.
func openSQLite(path string) (Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
	}
	return &sqlStore{db: db, dialect: sqliteDialect}, nil
}
