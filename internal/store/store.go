// Package store persists posts and accounts in SQLite.
//
// The pure-Go modernc.org/sqlite driver is used through database/sql, so the
// binary needs no cgo. Timestamps are stored as fixed-width UTC text, which
// keeps lexical and chronological order identical.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Sentinel errors for store operations.
var (
	ErrNotFound  = errors.New("record not found")
	ErrOpen      = errors.New("cannot open database")
	ErrEmptyPath = errors.New("database path cannot be empty")
)

const (
	driverName      = "sqlite"
	busyTimeoutMS   = 5000
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
	dirPermissions  = 0o750
)

// Store is a handle on the site database. Safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates the parent directory if needed and opens the database at
// path. ":memory:" opens a private in-memory database.
// Open does not create tables; call Migrate.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
			return nil, fmt.Errorf("%w: creating directory: %v", ErrOpen, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, busyTimeoutMS)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrOpen, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		// Rows written by other tools may use RFC 3339 or SQLite's default.
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
			if t, err2 := time.Parse(layout, s); err2 == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// placeholders returns "?, ?, ?" for n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
