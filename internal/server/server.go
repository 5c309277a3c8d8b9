// Package server exposes the transformation pipeline over HTTP: blocking and
// streaming transform endpoints, standalone validation, scenario listing, run
// history, and health.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/config"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/pipeline"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/store"
	"github.com/PoovendhanNandhu/POC-Cartedo/pkg/anthropic"
)

// Runner executes one transformation request. *pipeline.Controller satisfies
// it; tests substitute deterministic stubs.
type Runner interface {
	Run(ctx context.Context, req model.TransformRequest, sink pipeline.EventSink) *model.WorkflowState
}

// Options carries the server's collaborators.
type Options struct {
	Config  config.ServerConfig
	Policy  *config.TransformPolicy
	Runner  Runner
	Store   store.Store
	Backend anthropic.Client
	Version string
}

// Server is the HTTP API over the transformation pipeline.
type Server struct {
	cfg     config.ServerConfig
	policy  *config.TransformPolicy
	runner  Runner
	store   store.Store
	gen     anthropic.Client
	version string
	router  chi.Router
}

// New assembles the router and middleware chain.
func New(opts Options) *Server {
	s := &Server{
		cfg:     opts.Config,
		policy:  opts.Policy,
		runner:  opts.Runner,
		store:   opts.Store,
		gen:     opts.Backend,
		version: opts.Version,
	}
	if s.version == "" {
		s.version = "dev"
	}

	origins := opts.Config.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/transform", s.handleTransform)
		api.Post("/transform/stream", s.handleTransformStream)
		api.Post("/validate", s.handleValidate)
		api.Post("/scenarios", s.handleScenarios)
		api.Get("/runs", s.handleListRuns)
		api.Get("/runs/{id}", s.handleGetRun)
	})
	r.Get("/healthz", s.handleHealth)

	s.router = r
	return s
}

// Handler returns the assembled router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts derive from the run context so streaming handlers
		// stop when the server does.
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	zap.L().Info("server: listening", zap.Int("port", s.cfg.Port))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server: listen")
		}
		return nil
	case <-ctx.Done():
	}

	timeout := time.Duration(s.cfg.ShutdownTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	zap.L().Info("server: shutting down", zap.Duration("timeout", timeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}

// requestLogger emits one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
