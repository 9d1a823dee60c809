package web

import (
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// Readiness reports whether startup has completed. *startup.Gate implements it.
type Readiness interface {
	Ready() bool
	Err() error
}

// RequestObserver records per-route request metrics. *metrics.Metrics implements it.
type RequestObserver interface {
	ObserveRequest(route, method string, code int, d time.Duration)
}

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	code    int
	written bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.code = code
		r.written = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.code = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// recoverer turns a handler panic into a 500 and logs the stack.
func recoverer(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.Error("handler panic",
				zap.Any("panic", rec),
				zap.String("path", r.URL.Path),
				zap.ByteString("stack", debug.Stack()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

// instrument logs and measures one route. route is the mux pattern so
// metric labels stay bounded.
func instrument(route string, logger *zap.Logger, obs RequestObserver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		if obs != nil {
			obs.ObserveRequest(route, r.Method, rec.code, elapsed)
		}
		logger.Debug("request",
			zap.String("route", route),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.code),
			zap.Duration("duration", elapsed))
	})
}

// requireReady answers 503 until startup has completed.
func requireReady(ready Readiness, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready.Ready() {
			w.Header().Set("Retry-After", "5")
			http.Error(w, "site is starting, try again shortly", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}
