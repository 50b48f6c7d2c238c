package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/relaydesk/relaydesk-backend/internal/api"
	"github.com/relaydesk/relaydesk-backend/internal/config"
	"github.com/relaydesk/relaydesk-backend/internal/database"
	"github.com/relaydesk/relaydesk-backend/internal/pipeline"
	"github.com/relaydesk/relaydesk-backend/internal/repository"
	smtpserver "github.com/relaydesk/relaydesk-backend/internal/smtp"
	"github.com/relaydesk/relaydesk-backend/internal/storage"
	"github.com/relaydesk/relaydesk-backend/internal/websocket"
)

const (
	extractorTimeout = 120 * time.Second
	billingTimeout   = 30 * time.Second
	shutdownTimeout  = 10 * time.Second
)

func main() {
	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	logger.Info("starting RelayDesk backend")

	cfg, err := config.LoadWithValidation()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg.LogConfig(logger)

	// Database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Object storage. The base is the bare server origin; PublicURL
	// adds the /files prefix the router serves.
	objects, err := storage.NewLocalStorage(cfg.AttachmentStoragePath, cfg.PublicBaseURL)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Repositories
	businessRepo := repository.NewBusinessRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db, objects)
	submissionRepo := repository.NewSubmissionRepository(db)

	// WebSocket hub
	hub := websocket.NewHub(logger)
	go hub.Run()

	// Processing pipeline
	pl := pipeline.New(pipeline.Config{
		Attachments:   attachmentRepo,
		Messages:      messageRepo,
		Conversations: conversationRepo,
		Businesses:    businessRepo,
		Submissions:   submissionRepo,
		Objects:       objects,
		Extractor:     pipeline.NewHTTPExtractor(cfg.ExtractorBaseURL, extractorTimeout),
		Billing:       pipeline.NewHTTPBillingClient(cfg.BillingBaseURL, cfg.BillingAPIKey, billingTimeout),
		Notifier:      hub,
		Logger:        logger,
	})

	// SMTP server for the inbound email channel
	backend := smtpserver.NewBackend(&smtpserver.BackendConfig{
		BusinessRepo:     businessRepo,
		ConversationRepo: conversationRepo,
		MessageRepo:      messageRepo,
		Objects:          objects,
		WSHub:            hub,
		Logger:           logger,
	})
	smtpCfg := smtpserver.LoadServerConfigFromEnv()
	if os.Getenv("SMTP_ADDR") == "" {
		smtpCfg.Addr = fmt.Sprintf(":%d", cfg.SMTPPort)
	}
	smtpSrv := smtpserver.NewSecureServer(backend, smtpCfg)

	// HTTP API
	router := api.NewRouter(&api.RouterConfig{
		DB:             db,
		Objects:        objects,
		Pipeline:       pl,
		WSHub:          hub,
		Logger:         logger,
		StorageDir:     cfg.AttachmentStoragePath,
		APIKey:         cfg.APIKey,
		AllowedOrigins: cfg.OriginList(),
		RateLimit:      cfg.RateLimitRequests,
		RateBurst:      cfg.RateLimitBurst,
		EnableAuth:     cfg.APIKey != "",
	})

	// Start servers
	go func() {
		logger.Info("SMTP server listening", "addr", smtpCfg.Addr, "domain", smtpCfg.Domain)
		if err := smtpSrv.ListenAndServe(); err != nil {
			logger.Error("SMTP server stopped", "error", err)
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info("HTTP server listening", "addr", addr)
		if err := router.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server stopped", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := router.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if err := smtpSrv.Shutdown(ctx); err != nil {
		logger.Error("SMTP server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
