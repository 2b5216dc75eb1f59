package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/welldanyogia/webrana-chat-backend/internal/errors"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
)

const (
	// broadcastBuffer bounds publishes waiting for the run loop
	broadcastBuffer = 256

	// shutdownDrain bounds how long closeAll waits for write pumps to flush
	shutdownDrain = writeWait
)

// ErrHubStopped is returned by Publish after Run has exited
var ErrHubStopped = errors.New("hub stopped")

type outbound struct {
	data   []byte
	except string
}

// Hub fans events out to every live session. All deliveries go through the
// single Run loop, so each session receives events in publish order.
type Hub struct {
	registry  *Registry
	broadcast chan outbound
	done      chan struct{}
	stopOnce  sync.Once
	logger    *slog.Logger
	security  *logger.SecurityLogger
}

// NewHub creates a new Hub instance
func NewHub(registry *Registry, log *slog.Logger) *Hub {
	log = logger.OrDiscard(log)
	return &Hub{
		registry:  registry,
		broadcast: make(chan outbound, broadcastBuffer),
		done:      make(chan struct{}),
		logger:    log,
		security:  logger.NewSecurityLoggerFrom(log),
	}
}

// Registry returns the session registry backing the hub
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run starts the hub's main loop and blocks until ctx is cancelled, then
// announces every live session offline and closes it
func (h *Hub) Run(ctx context.Context) {
	defer h.stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.dispatch(msg)
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Done is closed once the run loop has exited
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Publish queues an event for every live session
func (h *Hub) Publish(event Event) error {
	return h.publish(event, "")
}

// PublishExcept queues an event for every live session but one
func (h *Hub) PublishExcept(event Event, sessionID string) error {
	return h.publish(event, sessionID)
}

func (h *Hub) publish(event Event, except string) error {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal broadcast event",
			slog.String("type", string(event.Kind())),
			slog.Any("error", err))
		return err
	}

	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- outbound{data: data, except: except}:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// dispatch delivers one frame to a snapshot of the sessions. Recipients that
// cannot take it are dropped and their departure is announced in turn.
func (h *Hub) dispatch(first outbound) {
	queue := []outbound{first}
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]

		for _, s := range h.registry.Snapshot() {
			if s.ID == msg.except {
				continue
			}
			if err := s.enqueue(msg.data); err != nil {
				derr := &apperrors.DeliveryError{SessionID: s.ID, Err: err}
				h.logger.Warn("dropping unreachable session",
					slog.String("session_id", s.ID),
					slog.String("username", s.Username),
					slog.Any("error", derr))
				if offline, ok := h.drop(s); ok {
					queue = append(queue, offline)
				}
			}
		}
	}
}

// drop deregisters and closes a session. The offline announcement is only
// produced for the caller that actually removed it.
func (h *Hub) drop(s *Session) (outbound, bool) {
	removed := h.registry.Deregister(s.ID)
	s.Close()
	if !removed {
		return outbound{}, false
	}
	data, err := json.Marshal(NewPresenceEvent(s.Username, StatusOffline))
	if err != nil {
		return outbound{}, false
	}
	return outbound{data: data}, true
}

// Join registers a session for conn and announces it online
func (h *Hub) Join(conn Conn, userID uint, username string) *Session {
	s := newSession(h, conn, userID, username)
	h.registry.Register(s)

	h.logger.Info("session opened",
		slog.String("session_id", s.ID),
		slog.String("username", username),
		slog.Int("live_sessions", h.registry.Len()))

	if err := h.Publish(NewPresenceEvent(username, StatusOnline)); err != nil {
		h.logger.Debug("presence not published", slog.Any("error", err))
	}
	return s
}

// Leave deregisters a session and announces it offline. Calling it for a
// session that is already gone is a no-op.
func (h *Hub) Leave(s *Session) {
	removed := h.registry.Deregister(s.ID)
	s.Close()
	if !removed {
		return
	}

	h.logger.Info("session closed",
		slog.String("session_id", s.ID),
		slog.String("username", s.Username),
		slog.Duration("connected_for", time.Since(s.ConnectedAt)))

	if err := h.Publish(NewPresenceEvent(s.Username, StatusOffline)); err != nil {
		h.logger.Debug("presence not published", slog.Any("error", err))
	}
}

// closeAll deregisters every session, queues each one's offline presence for
// the others and gives the write pumps until shutdownDrain to deliver it
func (h *Hub) closeAll() {
	var leaving []*Session
	for _, s := range h.registry.Snapshot() {
		if h.registry.Deregister(s.ID) {
			leaving = append(leaving, s)
		}
	}

	for _, s := range leaving {
		data, err := json.Marshal(NewPresenceEvent(s.Username, StatusOffline))
		if err != nil {
			continue
		}
		for _, r := range leaving {
			if r != s {
				_ = r.enqueue(data)
			}
		}
		h.logger.Info("session closed",
			slog.String("session_id", s.ID),
			slog.String("username", s.Username),
			slog.String("reason", "shutdown"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownDrain)
	defer cancel()

	var pumped []*Session
	for _, s := range leaving {
		if s.drain() {
			pumped = append(pumped, s)
		} else {
			s.Close()
		}
	}
	for _, s := range pumped {
		select {
		case <-s.Done():
		case <-ctx.Done():
			s.Close()
		}
	}
}
