package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
)

// Gateway upgrades authenticated requests into hub sessions
type Gateway struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewGateway creates a Gateway using upgrader for the handshake
func NewGateway(hub *Hub, upgrader websocket.Upgrader, log *slog.Logger) *Gateway {
	return &Gateway{
		hub:      hub,
		upgrader: upgrader,
		logger:   logger.OrDiscard(log),
	}
}

// Serve completes the handshake for an already identified user and runs the
// session until it closes. On handshake failure the upgrader has already
// written the HTTP error and nothing is registered.
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, userID uint, username string) error {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug("websocket upgrade failed",
			slog.String("remote_ip", r.RemoteAddr),
			slog.Any("error", err))
		return err
	}

	session := g.hub.Join(conn, userID, username)
	go session.WritePump()
	session.ReadPump()
	return nil
}
