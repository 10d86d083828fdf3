package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/krshsl/praxis/feedback/repository"
	ws "github.com/krshsl/praxis/feedback/websocket"
	"gorm.io/gorm"
)

// Server holds all server dependencies
type Server struct {
	config             *Config
	repo               *repository.GORMRepository
	generator          Generator
	authService        *AuthService
	authEndpoints      *AuthEndpoints
	feedbackService    *FeedbackService
	feedbackEndpoints  *FeedbackEndpoints
	interviewEndpoints *InterviewEndpoints
	assistantEndpoints *AssistantEndpoints
	reconciler         *StatsReconciler
	wsHub              *ws.Hub
	upgrader           websocket.Upgrader
}

// NewServer creates a new server instance
func NewServer(config *Config, db *gorm.DB) *Server {
	return &Server{
		config: config,
		repo:   repository.NewGORMRepository(db),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, config.WebSocket.AllowedOrigins)
			},
		},
	}
}

// InitializeServices builds the services and endpoints on top of the repository
func (s *Server) InitializeServices(ctx context.Context) error {
	if s.config.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is not configured")
	}

	generator, err := NewGenerator(ctx, s.config.AI)
	if err != nil {
		slog.Warn("Generation backend unavailable, feedback and question generation will fail", "error", err)
		generator = unavailableGenerator{reason: err.Error()}
	} else {
		slog.Info("Generation backend initialized", "provider", s.config.AI.Provider)
	}
	s.generator = generator

	catalog, err := DefaultTechCatalog()
	if err != nil {
		return err
	}

	s.wsHub = ws.NewHub()
	go s.wsHub.Run()

	updater := NewStatsUpdater(s.repo, s.config.Stats.MaxAttempts)
	s.reconciler = NewStatsReconciler(s.repo, updater, s.config.Stats.ReconcileGrace, s.config.Stats.ReconcileBatch)

	s.authService = NewAuthService(s.repo, s.config.JWT.Secret)
	s.authEndpoints = NewAuthEndpoints(s.authService)

	s.feedbackService = NewFeedbackService(FeedbackServiceDeps{
		Store:     s.repo,
		Generator: generator,
		Users:     ContextUserProvider{},
		Stats:     updater,
		Notifier:  s.wsHub,
	}, s.config.Feedback)
	s.feedbackEndpoints = NewFeedbackEndpoints(s.feedbackService)

	interviewService := NewInterviewService(s.repo, generator, ContextUserProvider{}, catalog, s.config.Interview)
	s.interviewEndpoints = NewInterviewEndpoints(interviewService)

	s.assistantEndpoints = NewAssistantEndpoints(
		NewResumeService(generator, ContextUserProvider{}, s.config.Assistant),
		NewChatService(generator, ContextUserProvider{}, s.config.Assistant),
	)

	slog.Info("Services initialized")
	return nil
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)
		s.authEndpoints.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(s.authService.Middleware)
			s.authEndpoints.RegisterRoutes(r)
			s.interviewEndpoints.RegisterRoutes(r)
			s.feedbackEndpoints.RegisterRoutes(r)
			s.assistantEndpoints.RegisterRoutes(r)
			r.Get("/ws", s.websocketHandlerFunc)
		})
	})

	return r
}

// Start serves HTTP and runs the stats reconciler until SIGINT or SIGTERM
func (s *Server) Start(ctx context.Context) error {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if interval := s.config.Stats.ReconcileInterval; interval > 0 {
		go s.reconciler.Run(ctx, interval)
		slog.Info("Stats reconciler started", "interval", interval)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	s.wsHub.Stop()

	slog.Info("Server exited")
	return nil
}

// CheckOrigin validates the origin of WebSocket connections to prevent CSRF attacks
func CheckOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	// If no allowed origins are configured, deny all requests for security
	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	for _, allowed := range strings.Split(allowedOriginsStr, ",") {
		if strings.TrimSpace(allowed) == origin {
			slog.Info("WebSocket connection accepted", "origin", origin)
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "up"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		slog.Warn("Database ping failed", "error", err)
		dbStatus = "down"
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status, "database": dbStatus})
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API v1", "version": "1.0.0"})
}

// websocketHandlerFunc subscribes the caller to their own event stream
func (s *Server) websocketHandlerFunc(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	slog.Info("WebSocket connection established", "user_id", user.ID)
	client := s.wsHub.RegisterClient(conn, user.ID)
	go client.WritePump()
	client.ReadPump()
}
