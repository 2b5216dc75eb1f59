package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
	apperrors "github.com/welldanyogia/webrana-chat-backend/internal/errors"
)

// SessionName is the cookie carrying the signed identity
const SessionName = "chat_session"

// ErrNoSession means the request carries no valid session cookie
var ErrNoSession = apperrors.NewAppError(apperrors.ErrUnauthorized, "authentication required", apperrors.CodeUnauthorized)

const (
	keyUserID   = "user_id"
	keyUsername = "username"
)

// Identity is the authenticated user behind a request
type Identity struct {
	UserID   uint   `json:"id"`
	Username string `json:"username"`
}

// Authenticator resolves the identity of a request. Implementations return
// an error matching apperrors.ErrUnauthorized when there is none.
type Authenticator interface {
	Identify(r *http.Request) (Identity, error)
}

// SessionOptions configures the session cookie
type SessionOptions struct {
	MaxAge int
	Secure bool
}

// SessionManager keeps the identity in a signed cookie
type SessionManager struct {
	store sessions.Store
}

// NewSessionManager creates a cookie-backed session manager signed with secret
func NewSessionManager(secret []byte, opts SessionOptions) *SessionManager {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// Login writes identity into the session cookie
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, identity Identity) error {
	sess, err := m.store.Get(r, SessionName)
	if err != nil && sess == nil {
		return err
	}
	sess.Values[keyUserID] = identity.UserID
	sess.Values[keyUsername] = identity.Username
	return sess.Save(r, w)
}

// Logout expires the session cookie
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, err := m.store.Get(r, SessionName)
	if err != nil && sess == nil {
		return err
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// Identify returns the identity stored in the request's session cookie
func (m *SessionManager) Identify(r *http.Request) (Identity, error) {
	sess, err := m.store.Get(r, SessionName)
	if err != nil || sess.IsNew {
		return Identity{}, ErrNoSession
	}
	userID, ok := sess.Values[keyUserID].(uint)
	if !ok || userID == 0 {
		return Identity{}, ErrNoSession
	}
	username, _ := sess.Values[keyUsername].(string)
	if username == "" {
		return Identity{}, ErrNoSession
	}
	return Identity{UserID: userID, Username: username}, nil
}
