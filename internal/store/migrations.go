package store

import (
	"context"
	"fmt"
)

// baseSchema creates the tables as first released. Later columns arrive
// through columnMigrations so old databases and new ones converge.
var baseSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		section      TEXT NOT NULL,
		title        TEXT NOT NULL,
		content      TEXT NOT NULL DEFAULT '',
		image_url    TEXT NOT NULL DEFAULT '',
		external_url TEXT NOT NULL DEFAULT '',
		author       TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_section ON posts (section)`,
}

// columnMigration adds one column when it is missing.
type columnMigration struct {
	Table  string
	Column string
	Def    string
}

var columnMigrations = []columnMigration{
	{"posts", "ppt_url", "TEXT NOT NULL DEFAULT ''"},
}

// Migrate creates missing tables and adds missing columns. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range baseSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	for _, m := range columnMigrations {
		exists, err := s.columnExists(ctx, m.Table, m.Column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("adding %s.%s: %w", m.Table, m.Column, err)
		}
	}
	return nil
}

// columnExists checks a column with PRAGMA table_info. Table names come
// from columnMigrations, never from input.
func (s *Store) columnExists(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("inspecting %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, ctyp string
			notnull    int
			dflt       any
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctyp, &notnull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("inspecting %s: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
