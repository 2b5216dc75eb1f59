package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory Conn
type fakeConn struct {
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.inbound:
		return websocket.TextMessage, msg, nil
	case <-c.closed:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("use of closed connection")
	default:
	}
	if messageType == websocket.TextMessage {
		c.mu.Lock()
		c.written = append(c.written, data)
		c.mu.Unlock()
	}
	return nil
}

func (c *fakeConn) SetReadLimit(int64)                 {}
func (c *fakeConn) SetReadDeadline(time.Time) error    { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error   { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

// startHub runs a hub until the test ends
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(NewRegistry(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub
}

type frame struct {
	Type      EventType `json:"type"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	IsTyping  bool      `json:"is_typing"`
	MessageID uint      `json:"message_id"`
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
}

// nextFrame reads the next queued frame of a session without pumps
func nextFrame(t *testing.T, s *Session) frame {
	t.Helper()
	select {
	case data := <-s.send:
		var f frame
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame for session %s", s.Username)
		return frame{}
	}
}

// nextFrameOfType skips frames until one of the wanted type arrives
func nextFrameOfType(t *testing.T, s *Session, want EventType) frame {
	t.Helper()
	for {
		if f := nextFrame(t, s); f.Type == want {
			return f
		}
	}
}

func assertNoFrame(t *testing.T, s *Session) {
	t.Helper()
	select {
	case data := <-s.send:
		t.Fatalf("unexpected frame for %s: %s", s.Username, data)
	case <-time.After(50 * time.Millisecond):
	}
}

// join opens a session and waits until the hub has announced it, so every
// earlier publish is already queued for the sessions that were live
func join(t *testing.T, hub *Hub, userID uint, username string) *Session {
	t.Helper()
	s := hub.Join(newFakeConn(), userID, username)
	for {
		f := nextFrame(t, s)
		if f.Type == EventPresence && f.Username == username && f.Status == StatusOnline {
			return s
		}
	}
}

// joinQuiet joins every username and empties the presence backlog
func joinQuiet(t *testing.T, hub *Hub, usernames ...string) []*Session {
	t.Helper()
	sessions := make([]*Session, 0, len(usernames))
	for i, name := range usernames {
		sessions = append(sessions, join(t, hub, uint(i+1), name))
	}
	for _, s := range sessions {
		drain(s)
	}
	return sessions
}

// drain empties the queued frames of a session
func drain(s *Session) {
	for {
		select {
		case <-s.send:
		case <-time.After(50 * time.Millisecond):
			return
		}
	}
}
