// Package server exposes the critique workflow over a local JSON API so a
// browser front end can drive the same controller and comparison viewer the
// terminal UI uses.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-critic/internal/viewer"
	"github.com/fpang/photo-critic/internal/workflow"
)

const (
	defaultMaxUpload   = 20 << 20
	defaultMaxSessions = 64
)

// defaultBounds is the viewer container assumed until the front end reports
// its real size with a resize event.
var defaultBounds = viewer.Bounds{Width: 1000, Height: 1000}

// Server holds the in-memory sessions and the remote operations they share.
type Server struct {
	analyzer workflow.Analyzer
	editor   workflow.Editor
	ctx      context.Context
	runner   workflow.Runner

	sessions  *sessionStore
	maxUpload int64
}

// Option customizes a Server.
type Option func(*Server)

// WithMaxUpload caps the accepted image size in bytes.
func WithMaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithMaxSessions caps live sessions; the oldest is evicted past the cap.
func WithMaxSessions(n int) Option {
	return func(s *Server) { s.sessions.max = n }
}

// WithRunner sets the request runner given to every session's controller.
func WithRunner(r workflow.Runner) Option {
	return func(s *Server) { s.runner = r }
}

// WithContext sets the context remote calls run under. It should outlive
// individual HTTP requests.
func WithContext(ctx context.Context) Option {
	return func(s *Server) { s.ctx = ctx }
}

// New creates a Server.
func New(analyzer workflow.Analyzer, editor workflow.Editor, opts ...Option) *Server {
	s := &Server{
		analyzer:  analyzer,
		editor:    editor,
		ctx:       context.Background(),
		sessions:  newSessionStore(defaultMaxSessions),
		maxUpload: defaultMaxUpload,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) newController() *workflow.Controller {
	opts := []workflow.Option{workflow.WithContext(s.ctx)}
	if s.runner != nil {
		opts = append(opts, workflow.WithRunner(s.runner))
	}
	return workflow.New(s.analyzer, s.editor, opts...)
}

// Router returns the HTTP handler for the API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		withLogging,
		withCORS,
	)

	r.Get("/api/health", s.handleHealth)

	r.Route("/api/sessions", func(r chi.Router) {
		// JSON responses are compressed; image bytes are sent as is.
		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })
			r.Post("/", s.handleCreateSession)
			r.Get("/{id}/state", s.handleState)
			r.Post("/{id}/image", s.handleUpload)
			r.Post("/{id}/analyze", s.handleAnalyze)
			r.Post("/{id}/edit", s.handleEdit)
			r.Post("/{id}/reanalyze", s.handleReanalyze)
			r.Post("/{id}/viewer", s.handleViewer)
		})
		r.Get("/{id}/download", s.handleDownload)
		r.Get("/{id}/images/{which}", s.handleImage)
	})

	return r
}

// ListenAndServe serves the API on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting web server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
