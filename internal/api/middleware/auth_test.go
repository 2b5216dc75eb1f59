package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-chat-backend/internal/auth"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
	"github.com/welldanyogia/webrana-chat-backend/tests/mocks"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func protectedEcho(authn auth.Authenticator, security *logger.SecurityLogger) *echo.Echo {
	e := echo.New()
	e.GET("/api/me", func(c echo.Context) error {
		identity, ok := IdentityFrom(c)
		if !ok {
			return c.String(http.StatusInternalServerError, "no identity")
		}
		return c.String(http.StatusOK, identity.Username)
	}, RequireUser(authn, security))
	return e
}

func TestRequireUser_NoSession(t *testing.T) {
	var buf bytes.Buffer
	security := logger.NewSecurityLoggerWithHandler(slog.NewJSONHandler(&buf, nil))
	e := protectedEcho(auth.NewSessionManager(testSecret, auth.SessionOptions{MaxAge: 60}), security)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	assert.Contains(t, buf.String(), "auth_failure")
}

func TestRequireUser_ValidSession(t *testing.T) {
	sessions := auth.NewSessionManager(testSecret, auth.SessionOptions{MaxAge: 60})
	e := protectedEcho(sessions, nil)

	login := httptest.NewRecorder()
	require.NoError(t, sessions.Login(login, httptest.NewRequest(http.MethodPost, "/", nil), auth.Identity{UserID: 3, Username: "carol"}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "carol", rec.Body.String())
}

func TestRequireUser_AuthenticatorRejects(t *testing.T) {
	authn := new(mocks.MockAuthenticator)
	authn.On("Identify", mock.AnythingOfType("*http.Request")).Return(auth.Identity{}, auth.ErrNoSession)
	var buf bytes.Buffer
	e := protectedEcho(authn, logger.NewSecurityLoggerWithHandler(slog.NewJSONHandler(&buf, nil)))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "authentication required")
	assert.Contains(t, buf.String(), "203.0.113.9")
	authn.AssertExpectations(t)
}

func TestRequireUser_PropagatesIdentity(t *testing.T) {
	authn := new(mocks.MockAuthenticator)
	authn.On("Identify", mock.AnythingOfType("*http.Request")).Return(auth.Identity{UserID: 9, Username: "dave"}, nil).Once()
	e := protectedEcho(authn, nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dave", rec.Body.String())
	authn.AssertExpectations(t)
}

func TestIdentityFrom_Missing(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, ok := IdentityFrom(c)
	assert.False(t, ok)
}
