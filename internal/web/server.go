// Package web provides the HTTP API for the dispatch board.
package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/dispatch/internal/config"
	"github.com/JonMunkholm/dispatch/internal/core"
	"github.com/JonMunkholm/dispatch/internal/dispatch"
	appmw "github.com/JonMunkholm/dispatch/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the part of core.Service the handlers use.
type Service interface {
	PreviewImport(ctx context.Context, fileName string, r io.Reader, size int64) (dispatch.ParseResult, error)
	CommitImport(ctx context.Context, fileName string, r io.Reader, size int64, driverID string) (*core.ImportResult, error)
	ListImports(ctx context.Context, limit int) ([]core.ImportRecord, error)
	LimiterStatus() core.ImportLimiterStatus

	CreateDriver(ctx context.Context, in core.DriverInput) (core.Driver, error)
	ListDrivers(ctx context.Context) ([]core.Driver, error)
	UpdateDriver(ctx context.Context, id string, in core.DriverInput) (core.Driver, error)
	DeleteDriver(ctx context.Context, id string) error

	ListStops(ctx context.Context, date string) ([]core.Stop, error)
	AssignStop(ctx context.Context, stopID, driverID, slot string) (core.Stop, error)
	DeleteStop(ctx context.Context, id string) error

	Ping(ctx context.Context) error
}

// Server is the HTTP server for the dispatch board.
type Server struct {
	service Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(service Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(appmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(appmw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(appmw.SecurityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(appmw.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).Handler)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(appmw.APIKeyAuth(&s.cfg.Security))

		// Imports get their own, tighter limit.
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(appmw.NewRateLimiter(s.cfg.Rate.ImportLimit, time.Minute).Handler)
			}
			r.Post("/import/preview", s.handlePreviewImport)
			r.Post("/import", s.handleCommitImport)
		})
		r.Get("/import/status", s.handleImportStatus)
		r.Get("/imports", s.handleListImports)

		r.Get("/drivers", s.handleListDrivers)
		r.Post("/drivers", s.handleCreateDriver)
		r.Put("/drivers/{driverID}", s.handleUpdateDriver)
		r.Delete("/drivers/{driverID}", s.handleDeleteDriver)

		r.Get("/stops", s.handleListStops)
		r.Post("/stops/{stopID}/assign", s.handleAssignStop)
		r.Delete("/stops/{stopID}", s.handleDeleteStop)
	})
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
