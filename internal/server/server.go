package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/omriShneor/calpal/internal/assistant"
	"github.com/omriShneor/calpal/internal/conversation"
	"github.com/omriShneor/calpal/internal/database"
	"github.com/omriShneor/calpal/internal/metrics"
)

const (
	oauthStateTTL  = 10 * time.Minute
	oauthStateSize = 4096
)

// ChatService runs chat messages through the command pipeline
type ChatService interface {
	HandleMessage(ctx context.Context, req assistant.Request) assistant.Response
	History(ctx context.Context, userID string) ([]conversation.Turn, error)
}

// Authenticator runs the Google OAuth login flow
type Authenticator interface {
	GetAuthURL(state string) string
	ExchangeCodeAndLogin(ctx context.Context, code string) (*database.User, error)
}

// UserLookup finds stored users by account email
type UserLookup interface {
	GetUserByEmail(email string) (*database.User, error)
}

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

type Server struct {
	chat        ChatService
	auth        Authenticator
	users       UserLookup
	health      HealthChecker
	metrics     *metrics.Metrics
	logger      *slog.Logger
	frontendURL string
	states      *expirable.LRU[string, struct{}]
	httpSrv     *http.Server
	port        int
}

// ServerConfig holds the collaborators of the HTTP server. Auth may be nil when
// no Google credentials are configured; the login routes then answer 503.
type ServerConfig struct {
	Chat        ChatService
	Auth        Authenticator
	Users       UserLookup
	Health      HealthChecker
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Port        int
	FrontendURL string
}

func New(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		chat:        cfg.Chat,
		auth:        cfg.Auth,
		users:       cfg.Users,
		health:      cfg.Health,
		metrics:     cfg.Metrics,
		logger:      logger,
		frontendURL: cfg.FrontendURL,
		states:      expirable.NewLRU[string, struct{}](oauthStateSize, nil, oauthStateTTL),
		port:        cfg.Port,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.requestIDMiddleware(s.corsMiddleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", s.handleHealthCheck)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Chat API
	mux.HandleFunc("POST /api/chat/message", s.handleChatMessage)
	mux.HandleFunc("GET /api/chat/history", s.handleChatHistory)

	// Auth API
	mux.HandleFunc("GET /api/auth/login", s.handleAuthLogin)
	mux.HandleFunc("GET /api/auth/callback", s.handleAuthCallback)
	mux.HandleFunc("GET /api/auth/user/{email}", s.handleGetUser)
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", fmt.Sprintf("http://localhost:%d", s.port))
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the server's HTTP handler for testing purposes
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}
