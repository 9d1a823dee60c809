package main

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/vianubio/clubsite/internal/auth"
	"github.com/vianubio/clubsite/internal/config"
	"github.com/vianubio/clubsite/internal/hints"
	"github.com/vianubio/clubsite/internal/logging"
	"github.com/vianubio/clubsite/internal/retry"
	"github.com/vianubio/clubsite/internal/startup"
	"github.com/vianubio/clubsite/internal/store"
)

// newLogger builds the command logger. JSON logs go to env.Stderr so
// commands stay testable; console logs use the development encoder.
func newLogger(cfg *config.Config, env *Environment) (*zap.Logger, error) {
	if cfg.Log.Format == "console" {
		return logging.New(cfg.Log.Level, cfg.Log.Format)
	}
	return logging.NewWriter(env.Stderr, cfg.Log.Level)
}

// openStore opens the configured database with an actionable hint on failure.
func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("%w%s", err, hints.ForDatabaseOpen(cfg.Database.Path))
	}
	return st, nil
}

// gatePolicy converts the startup section into a retry policy.
func gatePolicy(c config.StartupConfig) retry.Policy {
	p := retry.DefaultPolicy()
	if c.MaxAttempts > 0 {
		p.MaxAttempts = c.MaxAttempts
	}
	p.InitialDelay = config.Duration(c.InitialDelay, p.InitialDelay)
	p.MaxDelay = config.Duration(c.MaxDelay, p.MaxDelay)
	return p
}

// initSteps are the database steps run before the site serves data:
// schema migration, account seeding, then a liveness ping.
func initSteps(st *store.Store, accounts []config.Account, logger *zap.Logger) []startup.Step {
	return []startup.Step{
		{Name: "migrate", Run: func(ctx context.Context) error {
			if err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("%w: %w", ErrDatabaseSetup, err)
			}
			return nil
		}},
		{Name: "seed-accounts", Run: func(ctx context.Context) error {
			n, err := seedAccounts(ctx, st, accounts)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrDatabaseSetup, err)
			}
			if n > 0 {
				logger.Info("accounts seeded", zap.Int("count", n))
			}
			return nil
		}},
		{Name: "ping", Run: func(ctx context.Context) error {
			if err := st.Ping(ctx); err != nil {
				return fmt.Errorf("%w: %w", ErrDatabaseSetup, err)
			}
			return nil
		}},
	}
}

// seedAccounts hashes configured passwords and inserts missing accounts.
// Existing accounts keep their stored password. Hashing failures are
// permanent.
func seedAccounts(ctx context.Context, st *store.Store, accounts []config.Account) (int, error) {
	if len(accounts) == 0 {
		return 0, nil
	}

	records := make([]store.Account, 0, len(accounts))
	for _, a := range accounts {
		hash, err := auth.HashPassword(a.Password)
		if err != nil {
			return 0, retry.Permanent(fmt.Errorf("account %s: %w", a.Email, err))
		}
		records = append(records, store.Account{Email: a.Email, PasswordHash: hash})
	}
	return st.SeedAccounts(ctx, records)
}

// usageError marks flag parse failures as usage errors, leaving --help alone.
func usageError(err error) error {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUsage, err)
}
