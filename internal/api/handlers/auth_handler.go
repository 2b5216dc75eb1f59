package handlers

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-chat-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-chat-backend/internal/api/response"
	"github.com/welldanyogia/webrana-chat-backend/internal/auth"
	apperrors "github.com/welldanyogia/webrana-chat-backend/internal/errors"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
)

// AuthHandler handles signup, login and logout
type AuthHandler struct {
	service  *auth.Service
	sessions *auth.SessionManager
	security *logger.SecurityLogger
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service *auth.Service, sessions *auth.SessionManager, security *logger.SecurityLogger, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		security: security,
		logger:   logger.OrDiscard(log),
	}
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(c echo.Context) error {
	var creds auth.Credentials
	if err := c.Bind(&creds); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	identity, err := h.service.Signup(c.Request().Context(), creds)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.sessions.Login(c.Response(), c.Request(), identity); err != nil {
		h.logger.Error("failed to start session", slog.Any("error", err))
		return response.InternalError(c)
	}

	return response.Created(c, identity)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var creds auth.Credentials
	if err := c.Bind(&creds); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	identity, err := h.service.Login(c.Request().Context(), creds)
	if err != nil {
		if h.security != nil && errors.Is(err, apperrors.ErrUnauthorized) {
			h.security.AuthFailure(c.RealIP(), c.Path(), "invalid credentials")
		}
		return response.Error(c, err)
	}

	if err := h.sessions.Login(c.Response(), c.Request(), identity); err != nil {
		h.logger.Error("failed to start session", slog.Any("error", err))
		return response.InternalError(c)
	}

	return response.Success(c, identity)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.sessions.Logout(c.Response(), c.Request()); err != nil {
		h.logger.Error("failed to end session", slog.Any("error", err))
		return response.InternalError(c)
	}
	return response.NoContent(c)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return response.Unauthorized(c, "authentication required")
	}
	return response.Success(c, identity)
}
