package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/relaydesk/relaydesk-backend/internal/api/handlers"
	"github.com/relaydesk/relaydesk-backend/internal/api/middleware"
	"github.com/relaydesk/relaydesk-backend/internal/pipeline"
	"github.com/relaydesk/relaydesk-backend/internal/repository"
	"github.com/relaydesk/relaydesk-backend/internal/services"
	"github.com/relaydesk/relaydesk-backend/internal/storage"
	"github.com/relaydesk/relaydesk-backend/internal/websocket"
	"gorm.io/gorm"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB         *gorm.DB
	Objects    storage.ObjectStorage
	Pipeline   *pipeline.Pipeline
	WSHub      *websocket.Hub
	Verifier   services.DomainVerifier // nil = resolver-backed verifier from env config
	Logger     *slog.Logger
	StorageDir string // Local directory served at /files (empty = route disabled)
	// Security configuration
	APIKey         string   // API key for authentication (empty = disabled)
	AllowedOrigins []string // Allowed CORS and websocket origins
	RateLimit      float64  // Requests per second (0 = default)
	RateBurst      int      // Burst size for rate limiter
	EnableAuth     bool     // Enable API key authentication
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Security Middleware (applied in correct order)
	// 1. Recover from panics
	e.Use(middleware.Recover())

	// 2. Security headers (applied to all responses)
	e.Use(middleware.SecureHeaders())

	// 3. CORS restricted to the configured origins
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins))

	// 4. Per-IP rate limiting (zero values fall back to defaults)
	e.Use(middleware.RateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Logger))

	// 5. Request logging
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	// Initialize repositories
	businessRepo := repository.NewBusinessRepository(cfg.DB)
	conversationRepo := repository.NewConversationRepository(cfg.DB)
	messageRepo := repository.NewMessageRepository(cfg.DB)
	attachmentRepo := repository.NewAttachmentRepository(cfg.DB, cfg.Objects)
	submissionRepo := repository.NewSubmissionRepository(cfg.DB)

	// Domain verification service
	verifier := cfg.Verifier
	if verifier == nil {
		verifier = services.NewDomainVerifier(services.LoadVerifierConfigFromEnv())
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.StorageDir)
	businessHandler := handlers.NewBusinessHandler(businessRepo, verifier)
	conversationHandler := handlers.NewConversationHandler(conversationRepo, businessRepo)
	messageHandler := handlers.NewMessageHandler(messageRepo, conversationRepo)
	attachmentHandler := handlers.NewAttachmentHandler(attachmentRepo, messageRepo, submissionRepo, cfg.Objects, cfg.Pipeline)
	submissionHandler := handlers.NewSubmissionHandler(submissionRepo, cfg.Pipeline)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	// Stored attachments and derived page images. PublicURL points here.
	if cfg.StorageDir != "" {
		e.Static("/files", cfg.StorageDir)
	}

	// WebSocket endpoint (origin-checked in the upgrader)
	if cfg.WSHub != nil {
		wsHandler := handlers.NewWSHandler(cfg.WSHub, cfg.AllowedOrigins, cfg.Logger)
		e.GET("/ws", wsHandler.Serve)
	}

	// API routes
	api := e.Group("/api")

	// API key authentication (an empty key disables the check)
	apiKey := ""
	if cfg.EnableAuth {
		apiKey = cfg.APIKey
	}
	api.Use(middleware.APIKeyAuth(apiKey, cfg.Logger))

	// Business routes
	businesses := api.Group("/businesses")
	businesses.POST("", businessHandler.Create)
	businesses.GET("", businessHandler.List)
	businesses.GET("/:id", businessHandler.Get)
	businesses.PUT("/:id", businessHandler.Update)
	businesses.DELETE("/:id", businessHandler.Delete)
	businesses.GET("/:id/dns-setup", businessHandler.DNSSetup)
	businesses.POST("/:id/verify-dns", businessHandler.VerifyDNS)

	// Conversation routes
	conversations := api.Group("/conversations")
	conversations.POST("", conversationHandler.Create)
	conversations.GET("", conversationHandler.List)
	conversations.GET("/:id", conversationHandler.Get)
	conversations.DELETE("/:id", conversationHandler.Delete)

	// Message routes (nested under conversations)
	conversations.GET("/:id/messages", messageHandler.List)

	// Message routes (standalone)
	messages := api.Group("/messages")
	messages.GET("/:id", messageHandler.Get)
	messages.GET("/:id/content", messageHandler.Content)
	messages.PATCH("/:id/read", messageHandler.MarkAsRead)
	messages.DELETE("/:id", messageHandler.Delete)

	// Attachment routes (nested under messages)
	messages.GET("/:id/attachments", attachmentHandler.List)

	// Attachment routes (standalone)
	attachments := api.Group("/attachments")
	attachments.GET("/:id", attachmentHandler.Get)
	attachments.GET("/:id/download", attachmentHandler.Download)
	attachments.POST("/:id/parse", attachmentHandler.Parse)
	attachments.POST("/:id/submit", attachmentHandler.Submit)
	attachments.GET("/:id/request-sample", attachmentHandler.RequestSample)
	attachments.GET("/:id/submissions", attachmentHandler.ListSubmissions)
	attachments.GET("/:id/submissions/latest", attachmentHandler.LatestSubmission)

	// Submission routes
	submissions := api.Group("/submissions")
	submissions.GET("/:id", submissionHandler.Get)
	submissions.POST("/:id/resend", submissionHandler.Resend)

	return e
}
