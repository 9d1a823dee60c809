// Package web serves the club site over HTTP: pages, the JSON API,
// uploads, sessions and operational endpoints.
package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	clubsite "github.com/vianubio/clubsite"
	"github.com/vianubio/clubsite/internal/assets"
	"github.com/vianubio/clubsite/internal/config"
	"github.com/vianubio/clubsite/internal/store"
)

// multipartMemory is kept in memory while parsing a form; larger parts
// spill to temp files.
const multipartMemory = 1 << 20

// formOverhead allows for the text fields around an upload.
const formOverhead = 1 << 20

// AccountFinder looks up login accounts. *store.Store implements it.
type AccountFinder interface {
	FindAccount(ctx context.Context, email string) (store.Account, error)
}

// Options holds the collaborators of a Server.
type Options struct {
	Config   *config.Config
	Service  *clubsite.Service
	Accounts AccountFinder
	Ready    Readiness       // nil = always ready
	Metrics  http.Handler    // nil = /metrics not served
	Observer RequestObserver // nil = no request metrics
	Logger   *zap.Logger
}

// Server routes requests to the site handlers. Create with New.
type Server struct {
	svc           *clubsite.Service
	accounts      AccountFinder
	ready         Readiness
	metrics       http.Handler
	observer      RequestObserver
	logger        *zap.Logger
	sessions      *sessions
	pages         map[string]*template.Template
	siteTitle     string
	mount         string
	staticCtx     assets.Context
	maxUpload     int64
	accept        string
	exportEnabled bool
}

// New validates opts and prepares templates and sessions.
func New(opts Options) (*Server, error) {
	if opts.Service == nil || opts.Accounts == nil {
		return nil, errors.New("web: service and accounts are required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sess, err := newSessions(cfg.Auth.SessionKey, cfg.Server.SecureCookies)
	if err != nil {
		return nil, err
	}
	if cfg.Auth.SessionKey == "" {
		logger.Warn("no session key configured, sessions end on restart")
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	return &Server{
		svc:           opts.Service,
		accounts:      opts.Accounts,
		ready:         opts.Ready,
		metrics:       opts.Metrics,
		observer:      opts.Observer,
		logger:        logger,
		sessions:      sess,
		pages:         pages,
		siteTitle:     cfg.Site.Title,
		mount:         cfg.Assets.Mount,
		staticCtx:     cfg.Assets.TeamContext(),
		maxUpload:     cfg.Assets.MaxUploadBytes(),
		accept:        strings.Join(cfg.Assets.AllowedExtensions, ","),
		exportEnabled: cfg.Export.Enabled,
	}, nil
}

// NewHTTPServer wraps h with the configured timeouts.
func NewHTTPServer(cfg config.ServerConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       config.Duration(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      config.Duration(cfg.WriteTimeout, 60*time.Second),
		IdleTimeout:       2 * time.Minute,
	}
}

// Handler returns the routed handler with panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Liveness and operations.
	s.route(mux, "GET /health", s.handleHealth, false)
	s.route(mux, "GET /readyz", s.handleReady, false)
	if s.metrics != nil {
		s.route(mux, "GET /metrics", s.metrics.ServeHTTP, false)
	}

	// Pages that need no database.
	s.route(mux, "GET /{$}", s.handleHome, false)
	s.route(mux, "GET /about", s.handleAbout, false)
	s.route(mux, "GET /login", s.handleLoginForm, false)
	s.route(mux, "GET /logout", s.handleLogout, false)
	s.route(mux, "GET "+s.mount, staticHandler(s.staticCtx).ServeHTTP, false)

	// Data-backed routes.
	s.route(mux, "GET /blog", s.handleBlog, true)
	s.route(mux, "GET /api/posts", s.handleAPIPosts, true)
	s.route(mux, "GET /posts/{id}/print.pdf", s.handlePrint, true)
	s.route(mux, "POST /login", s.handleLogin, true)
	s.route(mux, "GET /admin/new", s.requireLogin(s.handleNewForm), true)
	s.route(mux, "POST /admin/new", s.requireLogin(s.handleCreate), true)

	return recoverer(s.logger, mux)
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc, needsData bool) {
	var handler http.Handler = h
	if needsData {
		handler = requireReady(s.ready, handler)
	}
	mux.Handle(pattern, instrument(pattern, s.logger, s.observer, handler))
}

// requireLogin redirects anonymous visitors to the login page.
func (s *Server) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessions.identity(r) == "" {
			_ = s.sessions.flash(w, r, "Autentificați-vă pentru a continua.")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
