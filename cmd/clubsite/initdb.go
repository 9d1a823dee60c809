package main

import (
	"context"
	"fmt"

	"github.com/vianubio/clubsite/internal/startup"
)

// runInitDB creates or upgrades the schema and seeds configured accounts,
// with the same retry policy the server uses.
func runInitDB(ctx context.Context, args []string, env *Environment) error {
	f, _, err := parseSiteFlags("init-db", args, env.Stderr)
	if err != nil {
		return usageError(err)
	}

	cfg, err := loadSiteConfig(f, env)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	gate := startup.NewGate(initSteps(st, cfg.Auth.Accounts, logger),
		startup.WithPolicy(gatePolicy(cfg.Startup)),
		startup.WithLogger(logger),
	)
	if err := gate.Run(ctx); err != nil {
		return err
	}

	if !f.common.quiet {
		fmt.Fprintf(env.Stdout, "database ready: %s\n", st.Path())
	}
	return nil
}
