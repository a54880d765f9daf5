// Package web serves the cookbook over HTTP: JSON runs, SSE-streamed runs,
// run records, health and Prometheus metrics.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pocketomega/pocket-flow/internal/config"
	"github.com/pocketomega/pocket-flow/internal/cookbook"
	"github.com/pocketomega/pocket-flow/internal/runstore"
)

// Options holds the server's dependencies.
type Options struct {
	Config   config.HTTPConfig
	Registry *cookbook.Registry
	Env      cookbook.Env
	Store    runstore.Store
	Health   HealthInfo
	// Gatherer backs /metrics; nil or Config.Metrics=false disables the route.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Server holds the HTTP router and its handlers.
type Server struct {
	cfg    config.HTTPConfig
	router chi.Router
	logger *zap.Logger
}

// NewServer builds the router.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}
	logger = logger.With(zap.String("component", "web"))
	if opts.Store == nil {
		opts.Store = runstore.NewMemory(0)
	}

	s := &Server{cfg: opts.Config, router: chi.NewRouter(), logger: logger}

	recipes := NewRecipeHandler(opts.Registry, opts.Env, opts.Store, logger)
	runs := NewRunsHandler(opts.Store, logger)
	health := NewHealthHandler(opts.Health)

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.ServeHTTP)
		r.Get("/recipes", recipes.List)
		r.Post("/recipes/{name}/run", recipes.Run)
		r.Post("/recipes/{name}/stream", recipes.Stream)
		r.Get("/runs", runs.List)
		r.Get("/runs/{id}", runs.Get)
	})
	if opts.Config.Metrics && opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured address until ctx is cancelled, then shuts
// down gracefully, waiting up to the shutdown timeout for in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s.logger.Info("shutting down gracefully", zap.Duration("timeout", timeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown error", zap.Error(err))
		return err
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

// requestLogger logs one line per request with zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
