package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/welldanyogia/webrana-chat-backend/internal/api/handlers"
	"github.com/welldanyogia/webrana-chat-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-chat-backend/internal/auth"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
	"github.com/welldanyogia/webrana-chat-backend/internal/repository"
	"github.com/welldanyogia/webrana-chat-backend/internal/services"
	"github.com/welldanyogia/webrana-chat-backend/internal/websocket"
)

// maxBodySize leaves room for multipart framing around the largest upload
const maxBodySize = "51M"

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	Store          repository.Store
	Messages       services.MessageService
	Auth           *auth.Service
	Sessions       *auth.SessionManager
	Gateway        *websocket.Gateway
	Logger         *slog.Logger
	Security       *logger.SecurityLogger
	AllowedOrigins []string
	Production     bool
	RateLimit      float64 // Requests per second per IP (0 disables)
	RateBurst      int
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// 1. Recover from panics
	e.Use(middleware.Recover())

	// 2. Security headers (applied to all responses)
	e.Use(middleware.SecureHeaders(cfg.Production))

	// 3. CORS
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.Production))

	// 4. Rate limiting
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(cfg.RateLimit, cfg.RateBurst, cfg.Security))
	}

	// 5. Request logging
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	requireUser := middleware.RequireUser(cfg.Sessions, cfg.Security)

	healthHandler := handlers.NewHealthHandler(cfg.Store)
	authHandler := handlers.NewAuthHandler(cfg.Auth, cfg.Sessions, cfg.Security, cfg.Logger)
	messageHandler := handlers.NewMessageHandler(cfg.Messages, cfg.Security)
	attachmentHandler := handlers.NewAttachmentHandler(cfg.Messages)
	realtimeHandler := handlers.NewRealtimeHandler(cfg.Gateway)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	// Realtime gateway
	e.GET("/ws", realtimeHandler.Connect, requireUser)

	api := e.Group("/api")

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", authHandler.Me, requireUser)

	// Message routes
	messages := api.Group("/messages", requireUser)
	messages.GET("", messageHandler.List)
	messages.POST("", messageHandler.Create, echomw.BodyLimit(maxBodySize))
	messages.PUT("/:id", messageHandler.Update, echomw.BodyLimit(maxBodySize))
	messages.DELETE("/:id", messageHandler.Delete)

	// Attachment routes
	attachments := api.Group("/attachments", requireUser)
	attachments.GET("/:id", attachmentHandler.Download)

	return e
}
