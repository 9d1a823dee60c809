package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	clubsite "github.com/vianubio/clubsite"
	"github.com/vianubio/clubsite/internal/config"
	"github.com/vianubio/clubsite/internal/hints"
	"github.com/vianubio/clubsite/internal/metrics"
	"github.com/vianubio/clubsite/internal/retry"
	"github.com/vianubio/clubsite/internal/startup"
	"github.com/vianubio/clubsite/internal/web"
)

const defaultShutdownTimeout = 10 * time.Second

// runServe starts the site and blocks until ctx is canceled, then shuts
// down gracefully. Database setup runs in the background so the server
// answers /health and /readyz while the database comes up.
func runServe(ctx context.Context, args []string, env *Environment) error {
	f, _, err := parseSiteFlags("serve", args, env.Stderr)
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

	m := metrics.New()
	opts := []clubsite.Option{
		clubsite.WithLogger(logger.Named("site")),
		clubsite.WithRecorder(m),
	}
	if cfg.Export.Enabled {
		size := clubsite.ResolvePoolSize(cfg.Export.Workers)
		pool := clubsite.NewExporterPool(size, config.Duration(cfg.Export.Timeout, clubsite.DefaultExportTimeout))
		defer func() {
			if err := pool.Close(); err != nil {
				logger.Warn("closing browsers", zap.Error(err))
			}
		}()
		opts = append(opts, clubsite.WithExporter(pool))
		logger.Info("printable export enabled", zap.Int("browsers", size))
	}

	svc, err := clubsite.New(cfg, st, opts...)
	if err != nil {
		if errors.Is(err, clubsite.ErrInvalidAssetPath) {
			return fmt.Errorf("%w%s", err, hints.ForUploadDir())
		}
		return err
	}

	gate := startup.NewGate(initSteps(st, cfg.Auth.Accounts, logger.Named("startup")),
		startup.WithPolicy(gatePolicy(cfg.Startup)),
		startup.WithLogger(logger.Named("startup")),
		startup.WithObserver(m),
	)

	site, err := web.New(web.Options{
		Config:   cfg,
		Service:  svc,
		Accounts: st,
		Ready:    gate,
		Metrics:  m.Handler(),
		Observer: m,
		Logger:   logger.Named("http"),
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("%w: %w%s", ErrListen, err, hints.ForAddressInUse(cfg.Server.Addr))
	}

	srv := web.NewHTTPServer(cfg.Server, site.Handler())
	pause := config.Duration(cfg.Startup.MaxDelay, 5*time.Second)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", ln.Addr().String()), zap.String("version", Version))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := gate.RunInBackground(gctx, pause)
		if errors.Is(err, context.Canceled) || retry.IsPermanent(err) {
			// A permanent failure keeps serving: /readyz reports it.
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			config.Duration(cfg.Server.ShutdownTimeout, defaultShutdownTimeout))
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
