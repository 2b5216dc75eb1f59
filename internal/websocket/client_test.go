package websocket

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_HandleMessage_TypingGoesToOthers(t *testing.T) {
	hub := startHub(t)
	sessions := joinQuiet(t, hub, "alice", "bob")
	alice, bob := sessions[0], sessions[1]

	alice.handleMessage([]byte(`{"type":"typing","is_typing":true}`))

	f := nextFrame(t, bob)
	assert.Equal(t, EventTyping, f.Type)
	assert.Equal(t, "alice", f.Username)
	assert.True(t, f.IsTyping)
	assertNoFrame(t, alice)
}

func TestSession_HandleMessage_ReadReceipt(t *testing.T) {
	hub := startHub(t)
	sessions := joinQuiet(t, hub, "alice", "bob")
	alice, bob := sessions[0], sessions[1]

	bob.handleMessage([]byte(`{"type":"read_receipt","message_id":42}`))

	f := nextFrame(t, alice)
	assert.Equal(t, EventReadReceipt, f.Type)
	assert.Equal(t, "bob", f.Username)
	assert.Equal(t, uint(42), f.MessageID)
}

func TestSession_HandleMessage_MalformedIsDropped(t *testing.T) {
	hub := startHub(t)
	sessions := joinQuiet(t, hub, "alice", "bob")
	alice, bob := sessions[0], sessions[1]

	payloads := []string{
		`not json`,
		`{"type":"message","content":"persist me"}`,
		`{"type":"typing"}`,
		`{"type":"read_receipt"}`,
		`{}`,
	}
	for _, p := range payloads {
		alice.handleMessage([]byte(p))
	}

	// Nothing is broadcast and the sender gets no error frame
	assertNoFrame(t, bob)
	assertNoFrame(t, alice)
	assert.Equal(t, 2, hub.Registry().Len())
}

func TestSession_HandleMessage_OversizedSignalIsDropped(t *testing.T) {
	hub := startHub(t)
	sessions := joinQuiet(t, hub, "alice", "bob")
	alice, bob := sessions[0], sessions[1]

	padded := `{"type":"typing","is_typing":true,"pad":"` + strings.Repeat("x", maxSignalSize) + `"}`
	alice.handleMessage([]byte(padded))

	assertNoFrame(t, bob)
	assert.Equal(t, 2, hub.Registry().Len())
}

func TestSession_PumpsLifecycle(t *testing.T) {
	hub := startHub(t)
	watcher := joinQuiet(t, hub, "bob")[0]

	conn := newFakeConn()
	s := hub.Join(conn, 1, "alice")
	go s.WritePump()
	done := make(chan struct{})
	go func() {
		s.ReadPump()
		close(done)
	}()

	conn.inbound <- []byte(`{"type":"typing","is_typing":false}`)
	assert.Equal(t, StatusOnline, nextFrame(t, watcher).Status)
	f := nextFrame(t, watcher)
	assert.Equal(t, EventTyping, f.Type)
	assert.False(t, f.IsTyping)

	// The write pump delivered alice's own online frame
	assert.Eventually(t, func() bool { return len(conn.frames()) >= 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	<-done

	f = nextFrame(t, watcher)
	assert.Equal(t, StatusOffline, f.Status)
	assert.Equal(t, "alice", f.Username)
	assert.Equal(t, 1, hub.Registry().Len())
}
