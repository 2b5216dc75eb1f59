package websocket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/webrana-chat-backend/internal/validator"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size read from the peer; larger frames end the connection
	maxMessageSize = 64 * 1024

	// Largest inbound signal accepted; bigger ones are dropped as malformed
	maxSignalSize = 512

	// Outbound frames buffered per session
	sendBuffer = 256
)

// Delivery failures
var (
	ErrSessionClosed  = errors.New("session closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn is the subset of *websocket.Conn a session uses
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Session is one live realtime connection
type Session struct {
	ID          string
	UserID      uint
	Username    string
	ConnectedAt time.Time

	hub       *Hub
	conn      Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger

	// draining asks the write pump to flush queued frames and close
	draining  chan struct{}
	drainOnce sync.Once
	pumping   atomic.Bool
}

func newSession(hub *Hub, conn Conn, userID uint, username string) *Session {
	return &Session{
		UserID:      userID,
		Username:    username,
		ConnectedAt: time.Now(),
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
		draining:    make(chan struct{}),
		logger:      hub.logger,
	}
}

// enqueue hands a frame to the write pump without blocking
func (s *Session) enqueue(data []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.send <- data:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		return ErrSendBufferFull
	}
}

// Close stops the pumps and closes the connection. Safe to call more than once
// and concurrently with delivery.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// drain lets the write pump flush what is queued, say goodbye and close.
// It reports false when no write pump is running to do so.
func (s *Session) drain() bool {
	s.drainOnce.Do(func() { close(s.draining) })
	return s.pumping.Load()
}

// Done is closed when the session is closed
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// ReadPump reads inbound signals until the connection fails, then leaves the hub
func (s *Session) ReadPump() {
	defer s.hub.Leave(s)

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error",
					slog.String("session_id", s.ID),
					slog.Any("error", err))
			}
			return
		}

		s.handleMessage(message)
	}
}

// WritePump pumps queued frames to the connection and keeps it alive with pings
func (s *Session) WritePump() {
	s.pumping.Store(true)
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case message := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.draining:
			s.flush()
			return

		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes every queued frame followed by a going-away close frame
func (s *Session) flush() {
	for {
		select {
		case message := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}

// inboundFrame is an ephemeral signal sent by a client
type inboundFrame struct {
	Type      EventType `json:"type" validate:"required,oneof=typing read_receipt"`
	IsTyping  *bool     `json:"is_typing" validate:"required_if=Type typing"`
	MessageID uint      `json:"message_id" validate:"required_if=Type read_receipt"`
}

// handleMessage republishes typing and read receipt signals to the other
// sessions. Anything else is logged and dropped without replying.
func (s *Session) handleMessage(data []byte) {
	if len(data) > maxSignalSize {
		s.hub.security.MalformedPayload(s.ID, s.Username, "signal too large")
		return
	}

	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.hub.security.MalformedPayload(s.ID, s.Username, "invalid json")
		return
	}
	if err := validator.Struct(frame); err != nil {
		s.hub.security.MalformedPayload(s.ID, s.Username, err.Error())
		return
	}

	var event Event
	switch frame.Type {
	case EventTyping:
		event = NewTypingEvent(s.Username, *frame.IsTyping)
	case EventReadReceipt:
		event = NewReadReceiptEvent(s.Username, frame.MessageID, time.Now())
	}

	if err := s.hub.PublishExcept(event, s.ID); err != nil {
		s.logger.Debug("signal not published", slog.Any("error", err))
	}
}
