// Package server exposes the payslip dispatcher over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/Lllllllleong/payslipflow/internal/config"
	"github.com/Lllllllleong/payslipflow/internal/payperiod"
	"github.com/Lllllllleong/payslipflow/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	dispatcher     services.BatchProcessor
	periods        *payperiod.Resolver
	sessions       *Sessions
	staticDir      string
	allowedOrigins []string
	maxUploadBytes int64
}

// New builds a Server from cfg.
func New(cfg *config.Config, dispatcher services.BatchProcessor, periods *payperiod.Resolver) *Server {
	if periods == nil {
		periods = payperiod.NewResolver()
	}
	return &Server{
		dispatcher:     dispatcher,
		periods:        periods,
		sessions:       NewSessions(cfg.AuthEmail, cfg.AuthPassword, cfg.SessionSecret, cfg.SessionTTL),
		staticDir:      cfg.StaticDir,
		allowedOrigins: cfg.AllowedOrigins,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Routes returns the HTTP handler for the whole service.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Post("/login", s.handleLogin)
		api.Post("/logout", s.handleLogout)
		api.Get("/session", s.handleSession)

		api.Group(func(g chi.Router) {
			g.Use(s.sessions.Require)
			g.Post("/upload-master-pdf", s.handleUpload)
		})
	})

	if info, err := os.Stat(s.staticDir); err == nil && info.IsDir() {
		slog.Info("Serving static files.", "dir", s.staticDir)
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	} else {
		r.Get("/", s.handleHealth)
	}
	return r
}
