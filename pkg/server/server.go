// Package server exposes live map sessions over HTTP.
//
// Each session owns a viewport and a layout controller. Clients drive them
// the way a browser map would (zoom buttons, province clicks, marker
// clicks, resizes) and read back the latest published layout as JSON or
// SVG. Zoom and pan are debounced by the controller, so the layout read
// right after a zoom request may still be the previous one; its
// generation number tells the two apart.
//
// Routes:
//
//	GET    /healthz
//	GET    /api/version
//	GET    /api/provinces
//	POST   /api/sessions
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	GET    /api/sessions/{id}/layout[?format=svg]
//	POST   /api/sessions/{id}/zoom              {"delta": 0.8}
//	PUT    /api/sessions/{id}/zoom              {"value": 4}
//	POST   /api/sessions/{id}/reset
//	PUT    /api/sessions/{id}/province          {"province": "四川", "toggle": false}
//	PUT    /api/sessions/{id}/viewport          {"width": 800, "height": 600, "center": [104, 37.5], "zoom": 2}
//	PUT    /api/sessions/{id}/filter            {"query": "", "genre": "indie"}
//	POST   /api/sessions/{id}/markers/{bandID}/click
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/bandmap/pkg/observability"
	"github.com/matzehuels/bandmap/pkg/pipeline"
	"github.com/matzehuels/bandmap/pkg/session"
)

// Defaults for Options.
const (
	DefaultCleanupInterval = time.Minute
	shutdownTimeout        = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	Runner *pipeline.Runner
	Data   *pipeline.Data
	// Pipeline holds the layout, viewport and controller settings that
	// new sessions start from.
	Pipeline pipeline.Options

	SessionTTL      time.Duration
	CleanupInterval time.Duration
	// Persist, when set, saves every session's state so that it can be
	// restored after a restart.
	Persist *session.FileStore
	Logger  *log.Logger
}

// Server serves map sessions.
type Server struct {
	runner   *pipeline.Runner
	data     *pipeline.Data
	opts     pipeline.Options
	sessions *session.MemoryStore
	persist  *session.FileStore
	cleanup  time.Duration
	logger   *log.Logger
	router   chi.Router
}

// New creates a server. opts.Runner and opts.Data are required.
func New(opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	s := &Server{
		runner:   opts.Runner,
		data:     opts.Data,
		opts:     opts.Pipeline,
		sessions: session.NewMemoryStore(opts.SessionTTL),
		persist:  opts.Persist,
		cleanup:  opts.CleanupInterval,
		logger:   opts.Logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Sessions returns the live session store.
func (s *Server) Sessions() *session.MemoryStore { return s.sessions }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observe)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/version", s.handleVersion)
		r.Get("/provinces", s.handleProvinces)
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Get("/layout", s.handleLayout)
			r.Post("/zoom", s.handleZoomBy)
			r.Put("/zoom", s.handleSetZoom)
			r.Post("/reset", s.handleReset)
			r.Put("/province", s.handleProvince)
			r.Put("/viewport", s.handleViewport)
			r.Put("/filter", s.handleFilter)
			r.Post("/markers/{bandID}/click", s.handleMarkerClick)
		})
	})
	return r
}

// observe reports every request to the registered server hooks.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		hooks := observability.Server()
		hooks.OnRequest(r.Context(), r.Method, route)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, route, status, time.Since(start))
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
// and closes every session.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go s.sessions.RunCleanup(cleanupCtx, s.cleanup, func(n int) {
		s.logger.Debug("expired sessions", "count", n)
	})
	if s.persist != nil {
		if n, err := s.persist.Cleanup(ctx); err != nil {
			s.logger.Warn("failed to clean persisted sessions", "err", err)
		} else if n > 0 {
			s.logger.Debug("removed expired persisted sessions", "count", n)
		}
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.Close()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close closes every live session.
func (s *Server) Close() {
	var ids []string
	s.sessions.Range(func(sess *session.Session) bool {
		ids = append(ids, sess.ID)
		return true
	})
	for _, id := range ids {
		_ = s.sessions.Delete(context.Background(), id)
	}
}
