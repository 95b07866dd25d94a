// Package api exposes the email manager over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ZihaoFU245/It-s-Friday/internal/config"
	"github.com/ZihaoFU245/It-s-Friday/internal/manager"
)

// Server represents the HTTP API server.
type Server struct {
	cfg     *config.Config
	manager *manager.Manager
	logger  *slog.Logger
	router  chi.Router
	server  *http.Server
	limiter *visitorLimiter
}

// NewServer creates a new API server.
func NewServer(cfg *config.Config, mgr *manager.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		manager: mgr,
		logger:  logger,
	}
	s.router = s.setupRouter()
	return s
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Use(corsMiddleware(s.cfg.Server.CORSOrigins))

	rps := s.cfg.Server.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := s.cfg.Server.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}
	s.limiter = newVisitorLimiter(rps, burst)
	r.Use(s.limiter.middleware)

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	// API routes (auth required)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		// Account directory
		r.Get("/accounts", s.handleListAccounts)
		r.Post("/accounts", s.handleAddAccount)
		r.Patch("/accounts/{name}", s.handleUpdateAccount)
		r.Delete("/accounts/{name}", s.handleRemoveAccount)
		r.Get("/accounts/{name}/profile", s.handleAccountProfile)

		// Email operations
		r.Route("/email", func(r chi.Router) {
			r.Get("/messages", s.handleListMessages)
			r.Get("/messages/{id}", s.handleGetMessage)
			r.Delete("/messages/{id}", s.handleDeleteMessage)
			r.Get("/search", s.handleSearch)

			r.Get("/unread", s.handleUnread)
			r.Get("/unread/count", s.handleUnreadCount)

			r.Post("/send", s.handleSend)
			r.Post("/reply", s.handleReply)
			r.Post("/mark-read", s.handleMarkRead)
			r.Post("/mark-unread", s.handleMarkUnread)
			r.Post("/move", s.handleMove)

			r.Get("/drafts", s.handleListDrafts)
			r.Post("/drafts", s.handleCreateDraft)
			r.Put("/drafts/{id}", s.handleUpdateDraft)
			r.Post("/drafts/{id}/send", s.handleSendDraft)
			r.Delete("/drafts/{id}", s.handleDeleteDraft)

			r.Get("/folders", s.handleListFolders)
			r.Post("/folders", s.handleCreateFolder)
			r.Delete("/folders/{id}", s.handleDeleteFolder)
		})
	})

	return r
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	bindAddr := s.cfg.Server.BindAddr
	if bindAddr == "" {
		bindAddr = "127.0.0.1"
	}
	addr := net.JoinHostPort(bindAddr, strconv.Itoa(s.cfg.Server.APIPort))

	if s.cfg.Server.APIKey == "" {
		s.logger.Warn("API server running without authentication; set [server] api_key in config.toml")
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// loggerMiddleware logs HTTP requests.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// authMiddleware validates the API key.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key configured
		if s.cfg.Server.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			authHeader = r.Header.Get("X-API-Key")
		}

		// Strip "Bearer " prefix if present
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			authHeader = authHeader[7:]
		}

		if subtle.ConstantTimeCompare([]byte(authHeader), []byte(s.cfg.Server.APIKey)) != 1 {
			s.logger.Warn("unauthorized API request",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
