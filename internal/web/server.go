// Package web is the HTTP/WebSocket adapter: a REST surface over the
// api.Service operations plus a WebSocket feed that relays bus events 1:1.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/api"
)

// Server hosts the REST and WebSocket endpoints.
type Server struct {
	svc  *api.Service
	addr string
}

// NewServer creates a server for the given service and listen address.
func NewServer(svc *api.Service, addr string) *Server {
	return &Server{svc: svc, addr: addr}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", s.handleListProfiles)
			r.Post("/", s.handleCreateProfile)
			r.Get("/{name}", s.handleGetProfile)
			r.Delete("/{name}", s.handleDeleteProfile)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleStartSession)
			r.Post("/stop-all", s.handleStopAll)
			r.Get("/{id}", s.handleGetSession)
			r.Delete("/{id}", s.handleStopSession)
		})

		r.Get("/events", s.handleEvents)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http adapter listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
