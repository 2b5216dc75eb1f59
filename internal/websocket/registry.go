package websocket

import (
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync"
)

// Registry tracks live sessions by ID. It is safe for concurrent
// register, deregister and snapshot calls.
type Registry struct {
	sessions *xsync.MapOf[string, *Session]
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: xsync.NewMapOf[*Session](),
	}
}

// Register assigns the session a fresh ID and adds it
func (r *Registry) Register(s *Session) string {
	for {
		id := uuid.NewString()
		s.ID = id
		if _, loaded := r.sessions.LoadOrStore(id, s); !loaded {
			return id
		}
	}
}

// Deregister removes a session. It reports whether the session was present,
// so exactly one caller observes the removal.
func (r *Registry) Deregister(id string) bool {
	_, existed := r.sessions.LoadAndDelete(id)
	return existed
}

// Get returns a live session by ID
func (r *Registry) Get(id string) (*Session, bool) {
	return r.sessions.Load(id)
}

// Snapshot returns a point-in-time copy of the live sessions
func (r *Registry) Snapshot() []*Session {
	sessions := make([]*Session, 0, r.sessions.Size())
	r.sessions.Range(func(_ string, s *Session) bool {
		sessions = append(sessions, s)
		return true
	})
	return sessions
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	return r.sessions.Size()
}
