package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Account is a login. PasswordHash is a bcrypt hash.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
}

// SeedAccounts inserts accounts whose email is not stored yet and returns
// how many were inserted. Existing accounts keep their password.
func (s *Store) SeedAccounts(ctx context.Context, accounts []Account) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seeding accounts: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, acc := range accounts {
		email := strings.TrimSpace(acc.Email)
		if email == "" || acc.PasswordHash == "" {
			return 0, fmt.Errorf("seeding accounts: email and password hash are required")
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (email, password_hash) VALUES (?, ?) ON CONFLICT(email) DO NOTHING`,
			email, acc.PasswordHash)
		if err != nil {
			return 0, fmt.Errorf("seeding account %s: %w", email, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seeding accounts: %w", err)
	}
	return inserted, nil
}

// FindAccount returns the account with email, or ErrNotFound.
func (s *Store) FindAccount(ctx context.Context, email string) (Account, error) {
	var acc Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM accounts WHERE email = ?`,
		strings.TrimSpace(email),
	).Scan(&acc.ID, &acc.Email, &acc.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("finding account: %w", err)
	}
	return acc, nil
}
