package integration

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-chat-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-chat-backend/internal/auth"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
)

var sessionSecret = []byte("0123456789abcdef0123456789abcdef")

// securedEcho applies the production middleware chain in router order
func securedEcho(security *logger.SecurityLogger, sessions *auth.SessionManager, rps float64, burst int) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.SecureHeaders(true))
	e.Use(middleware.SecureCORS([]string{"https://chat.example.com"}, true))
	e.Use(middleware.RateLimiterWithConfig(rps, burst, security))

	e.GET("/api/messages", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}, middleware.RequireUser(sessions, security))
	return e
}

func sessionCookies(t *testing.T, sessions *auth.SessionManager) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := sessions.Login(rec, httptest.NewRequest(http.MethodPost, "/", nil), auth.Identity{UserID: 1, Username: "alice"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return rec.Result().Cookies()
}

func TestSecurityMiddlewareIntegration(t *testing.T) {
	var logs bytes.Buffer
	security := logger.NewSecurityLoggerWithHandler(slog.NewJSONHandler(&logs, nil))
	sessions := auth.NewSessionManager(sessionSecret, auth.SessionOptions{MaxAge: 3600, Secure: true})

	t.Run("full security middleware chain", func(t *testing.T) {
		e := securedEcho(security, sessions, 100, 100)

		req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
		req.Header.Set("Origin", "https://chat.example.com")
		for _, c := range sessionCookies(t, sessions) {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()

		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("X-Content-Type-Options header missing")
		}
		if rec.Header().Get("Strict-Transport-Security") == "" {
			t.Error("HSTS header missing in production")
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "https://chat.example.com" {
			t.Errorf("CORS should allow configured origin, got: %s", rec.Header().Get("Access-Control-Allow-Origin"))
		}
	})

	t.Run("missing session returns 401 and is logged", func(t *testing.T) {
		logs.Reset()
		e := securedEcho(security, sessions, 100, 100)

		req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
		if !bytes.Contains(logs.Bytes(), []byte("auth_failure")) {
			t.Error("auth failure should be security logged")
		}
	})

	t.Run("session signed with another secret is rejected", func(t *testing.T) {
		e := securedEcho(security, sessions, 100, 100)
		other := auth.NewSessionManager([]byte("fedcba9876543210fedcba9876543210"), auth.SessionOptions{MaxAge: 3600})

		req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
		for _, c := range sessionCookies(t, other) {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})

	t.Run("rate limiter returns 429 before authentication", func(t *testing.T) {
		e := securedEcho(security, sessions, 0.1, 1)

		for i := 0; i < 10; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
			req.RemoteAddr = "192.168.1.100:12345"
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code == http.StatusTooManyRequests {
				if rec.Header().Get("Retry-After") == "" {
					t.Error("Retry-After header should be present")
				}
				return
			}
		}

		t.Error("rate limiter should have returned 429")
	})
}
