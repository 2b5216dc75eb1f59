package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-chat-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-chat-backend/internal/api/response"
	"github.com/welldanyogia/webrana-chat-backend/internal/websocket"
)

// RealtimeHandler upgrades authenticated requests to live sessions
type RealtimeHandler struct {
	gateway *websocket.Gateway
}

// NewRealtimeHandler creates a new RealtimeHandler
func NewRealtimeHandler(gateway *websocket.Gateway) *RealtimeHandler {
	return &RealtimeHandler{gateway: gateway}
}

// Connect handles GET /ws. It blocks until the session ends.
func (h *RealtimeHandler) Connect(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return response.Unauthorized(c, "authentication required")
	}

	// A failed handshake has already been answered by the upgrader
	_ = h.gateway.Serve(c.Response(), c.Request(), identity.UserID, identity.Username)
	return nil
}
