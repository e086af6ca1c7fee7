// Package server exposes extraction runs and stored records over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/msalhab/tarajim/internal/config"
	"github.com/msalhab/tarajim/internal/home"
	"github.com/msalhab/tarajim/internal/pipeline"
	"github.com/msalhab/tarajim/internal/prompts"
)

// DefaultMaxUploadBytes caps PDF uploads at 100 MiB.
const DefaultMaxUploadBytes = 100 << 20

// Server is the tarajim HTTP API server.
type Server struct {
	router   chi.Router
	runner   *pipeline.Runner
	home     *home.Dir
	cfg      *config.Config
	resolver *prompts.Resolver
	log      *slog.Logger
	runs     *runStore

	maxUploadBytes int64
}

// NewServer creates and configures the HTTP server.
func NewServer(runner *pipeline.Runner, h *home.Dir, cfg *config.Config, resolver *prompts.Resolver, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		runner:         runner,
		home:           h,
		cfg:            cfg,
		resolver:       resolver,
		log:            log,
		runs:           newRunStore(),
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/healthz", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(config.ResolveEnvVars(s.cfg.Server.APIKey)))

		r.Post("/api/books", s.handleUpload)
		r.Get("/api/books", s.handleListBooks)
		r.Get("/api/books/{bookID}/records", s.handleListRecords)
		r.Get("/api/books/{bookID}/records/{authorIndex}", s.handleGetRecord)
		r.Get("/api/books/{bookID}/export", s.handleExport)
		r.Get("/api/runs/{runID}", s.handleRunStatus)
		r.Get("/api/prompts", s.handleListPrompts)
	})

	s.router = r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Listen,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info("http server listening", "addr", s.cfg.Server.Listen)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
