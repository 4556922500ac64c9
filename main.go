package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/omriShneor/calpal/internal/assistant"
	"github.com/omriShneor/calpal/internal/auth"
	"github.com/omriShneor/calpal/internal/calendar"
	"github.com/omriShneor/calpal/internal/command"
	"github.com/omriShneor/calpal/internal/config"
	"github.com/omriShneor/calpal/internal/conversation"
	"github.com/omriShneor/calpal/internal/database"
	"github.com/omriShneor/calpal/internal/executor"
	"github.com/omriShneor/calpal/internal/gcal"
	"github.com/omriShneor/calpal/internal/intent"
	"github.com/omriShneor/calpal/internal/llm"
	"github.com/omriShneor/calpal/internal/logging"
	"github.com/omriShneor/calpal/internal/matcher"
	"github.com/omriShneor/calpal/internal/metrics"
	"github.com/omriShneor/calpal/internal/server"
	"github.com/omriShneor/calpal/internal/timeutil"
)

func main() {
	cfg := config.LoadFromEnv()

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	loc, fellBack := timeutil.ResolveLocation(cfg.Timezone)
	if fellBack {
		logger.Warn("unknown timezone, using UTC", "timezone", cfg.Timezone)
	}
	clock := timeutil.SystemClock{Location: loc}

	// Phase 1: Core infrastructure
	m, err := initMetrics()
	if err != nil {
		fatal("creating metrics", err)
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		fatal("creating database", err)
	}
	defer db.Close()

	// Phase 2: Google login and calendars
	authService := initAuth(cfg, db, logger)

	var calendars calendar.Provider = disconnectedCalendars{}
	if authService != nil {
		calendars = gcal.NewProvider(db, authService, loc)
	}

	// Phase 3: Command pipeline
	llmCfg := llm.Config{
		Provider:          cfg.LLMProvider,
		AnthropicAPIKey:   cfg.AnthropicAPIKey,
		ClaudeModel:       cfg.ClaudeModel,
		ClaudeTemperature: cfg.ClaudeTemperature,
		GroqAPIKey:        cfg.GroqAPIKey,
		GroqBaseURL:       cfg.GroqBaseURL,
		GroqModel:         cfg.GroqModel,
		RatePerMinute:     cfg.LLMRatePerMinute,
		Burst:             cfg.LLMBurst,
	}
	completer, err := llm.New(llmCfg, intent.SystemPrompt, m)
	if err != nil {
		fatal("configuring language model", err)
	}
	if completer == nil {
		logger.Warn("no language model configured, classifying with keywords only")
	} else {
		logger.Info("language model configured", "provider", llmCfg.ResolveProvider())
	}

	classifier := intent.NewClassifier(completer, intent.Config{
		Timeout:      cfg.LLMTimeout,
		ContextTurns: cfg.ContextTurns,
	}, logger, m)

	resolver := matcher.NewResolver(matcher.Config{
		Threshold:      cfg.MatchThreshold,
		ShortThreshold: cfg.MatchShortThreshold,
		ShortQueryLen:  cfg.MatchShortQueryLen,
		TokenBonus:     cfg.MatchTokenBonus,
	})

	exec := executor.New(resolver, clock, executor.Config{
		ListMaxResults:   cfg.ListMaxResults,
		SearchMaxResults: cfg.SearchMaxResults,
		SearchWindowDays: cfg.SearchWindowDays,
		CallTimeout:      cfg.CalendarTimeout,
	}, logger, m)

	conversations, err := conversation.NewManager(db, conversation.ManagerConfig{
		HistorySize: cfg.HistorySize,
		CacheSize:   cfg.ConversationCacheSize,
	})
	if err != nil {
		fatal("creating conversation manager", err)
	}

	chat := assistant.New(assistant.Deps{
		Parser:        command.NewParser(classifier, clock, logger),
		Executor:      exec,
		Conversations: conversations,
		Calendars:     calendars,
		Clock:         clock,
		Logger:        logger,
		Metrics:       m,
	})

	// Phase 4: HTTP
	serverCfg := server.ServerConfig{
		Chat:        chat,
		Users:       db,
		Health:      db,
		Metrics:     m,
		Logger:      logger,
		Port:        cfg.HTTPPort,
		FrontendURL: cfg.FrontendURL,
	}
	if authService != nil {
		serverCfg.Auth = authService
	}
	srv := server.New(serverCfg)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	waitForShutdown(srv, logger)
}

func initMetrics() (*metrics.Metrics, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	return metrics.New(reg)
}

// initAuth returns nil when Google login cannot be offered; every user is then
// treated as not connected.
func initAuth(cfg *config.Config, db *database.DB, logger *slog.Logger) *auth.Service {
	encryptor, err := auth.NewEncryptor(auth.KeyFromSecret(cfg.EncryptionKey))
	if err != nil {
		logger.Warn("Google login disabled", "error", err)
		return nil
	}

	oauthConfig, err := gcal.LoadOAuthConfig(cfg.GoogleCredentialsFile, cfg.GoogleCredentialsJSON, cfg.OAuthRedirectURL())
	if err != nil {
		logger.Warn("Google login disabled", "error", err)
		return nil
	}

	logger.Info("Google login configured", "redirect_url", oauthConfig.RedirectURL)
	return auth.NewService(db, oauthConfig, encryptor)
}

// disconnectedCalendars stands in for Google Calendar when login is not configured
type disconnectedCalendars struct{}

func (disconnectedCalendars) ForUser(context.Context, string) (calendar.Service, error) {
	return nil, calendar.ErrNotConnected
}

func fatal(context string, err error) {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", context, err)
	os.Exit(1)
}

func waitForShutdown(srv *server.Server, logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
}
