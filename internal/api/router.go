package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"airbridge/internal/auth"
	"airbridge/internal/config"
	"airbridge/internal/device"
	"airbridge/internal/events"
	"airbridge/internal/mqtt"
	"airbridge/internal/poll"
	"airbridge/internal/storage"
)

// Server represents the API server
type Server struct {
	router       *chi.Mux
	config       *config.Config
	handler      *device.Handler
	runner       *poll.Runner
	eventStore   *events.Store
	storage      storage.Storage
	mqttClient   *mqtt.Client
	credAuth     *auth.CredentialsAuth
	jwtManager   *auth.JWTManager
	authMw       *auth.Middleware
	loginLimiter *auth.LoginRateLimiter
}

// NewServer creates a new API server. mqttClient may be nil when no broker
// is configured.
func NewServer(cfg *config.Config, handler *device.Handler, runner *poll.Runner, eventStore *events.Store, store storage.Storage, mqttClient *mqtt.Client) *Server {
	credAuth := auth.NewCredentialsAuth(cfg.APIUsername(), cfg.APIPassword())
	jwtManager := auth.NewJWTManager(cfg.JWTSecret(), cfg.JWTExpiration())
	authMw := auth.NewMiddleware(jwtManager)

	s := &Server{
		router:       chi.NewRouter(),
		config:       cfg,
		handler:      handler,
		runner:       runner,
		eventStore:   eventStore,
		storage:      store,
		mqttClient:   mqttClient,
		credAuth:     credAuth,
		jwtManager:   jwtManager,
		authMw:       authMw,
		loginLimiter: auth.NewLoginRateLimiter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Create handlers
	authHandler := NewAuthHandler(s.credAuth, s.jwtManager, s.loginLimiter, s.config, s.eventStore)
	statusHandler := NewStatusHandler(s.handler, s.config, s.mqttClient)
	readingHandler := NewReadingHandler(s.handler, s.runner, s.eventStore)
	historyHandler := NewHistoryHandler(s.storage)
	eventsHandler := NewEventsHandler(s.eventStore)

	// Public routes
	r.Post("/api/auth/login", authHandler.Login)

	// Protected API routes
	r.Group(func(r chi.Router) {
		// Apply auth middleware only if NoAuth is false
		if !s.config.NoAuth() {
			r.Use(s.authMw.RequireAuth)
		} else {
			// In no-auth mode, inject a fake admin user
			r.Use(s.fakeAuthMiddleware)
		}

		// Auth
		r.Post("/api/auth/logout", authHandler.Logout)
		r.Post("/api/auth/refresh", authHandler.Refresh)
		r.Get("/api/auth/me", authHandler.Me)

		// Bridge state
		r.Get("/api/status", statusHandler.Status)
		r.Get("/api/reading", readingHandler.Reading)
		r.Post("/api/refresh", readingHandler.Refresh)
		r.Get("/api/history", historyHandler.List)

		// Events
		r.Get("/api/events", eventsHandler.List)
		r.Get("/api/events/ws", eventsHandler.Stream)
	})
}

// Router returns the chi router
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON writes JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// fakeAuthMiddleware injects a fake admin user for no-auth mode
func (s *Server) fakeAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fakeUser := &auth.User{
			Username: "dev",
			Role:     auth.RoleAdmin,
		}
		ctx := auth.SetUserContext(r.Context(), fakeUser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
