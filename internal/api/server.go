package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/diploy/competency-gateway/internal/config"
	"github.com/diploy/competency-gateway/internal/mapping"
	"github.com/diploy/competency-gateway/internal/session"
	"github.com/diploy/competency-gateway/internal/statestore"
	"github.com/diploy/competency-gateway/pkg/client"
)

// Server represents the HTTP API server
type Server struct {
	config            config.ServerConfig
	router            *chi.Mux
	backend           *client.Client
	sessions          *session.Manager
	store             statestore.Store
	registry          *Registry
	reconciler        *mapping.Reconciler
	sessionMiddleware *SessionMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	backend *client.Client,
	sessions *session.Manager,
	store statestore.Store,
	catalog *mapping.Catalog,
) *Server {
	s := &Server{
		config:            cfg,
		backend:           backend,
		sessions:          sessions,
		store:             store,
		registry:          NewRegistry(backend, sessions, store),
		reconciler:        mapping.NewReconciler(catalog),
		sessionMiddleware: NewSessionMiddleware(sessions),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// Registry returns the per-session flow registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(150 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Session-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Everything else requires a live session
		r.Group(func(r chi.Router) {
			r.Use(s.sessionMiddleware.Require)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/session", s.handleSession)

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", s.handleGetProfileFlow)
				r.Put("/", s.handleSaveIdentity)
				r.Post("/advance", s.handleAdvanceSection)

				r.Post("/educations", s.handleAddEducation)
				r.Delete("/educations/{id}", s.handleDeleteEducation)
				r.Post("/certifications", s.handleAddCertification)
				r.Delete("/certifications/{id}", s.handleDeleteCertification)
				r.Post("/experiences", s.handleAddExperience)
				r.Delete("/experiences/{id}", s.handleDeleteExperience)

				r.Post("/avatar", s.handleUploadAvatar)
				r.Delete("/avatar", s.handleDeleteAvatar)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Get("/", s.handleGetChat)
				r.Post("/start", s.handleStartChat)
				r.Post("/messages", s.handleSendChat)
				r.Post("/replay", s.handleReplayChat)
			})

			r.Route("/assessments/{area}", func(r chi.Router) {
				r.Post("/start", s.handleStartAssessment)
				r.Get("/", s.handleGetAssessment)
				r.Post("/answer", s.handleSelectAnswer)
				r.Post("/navigate", s.handleNavigate)
				r.Post("/submit", s.handleSubmitAssessment)
			})

			r.Get("/dashboard", s.handleDashboard)
			r.Get("/events", s.handleEventsWS)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
