package middleware

import (
	"github.com/labstack/echo/v4"
)

// contentSecurityPolicy lets the chat client open its websocket and render
// attachments served from this origin
const contentSecurityPolicy = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data: blob:; media-src 'self' blob:; font-src 'self'; " +
	"connect-src 'self' ws: wss:; frame-ancestors 'none'"

var staticSecurityHeaders = map[string]string{
	"X-Frame-Options":         "DENY",
	"X-Content-Type-Options":  "nosniff",
	"X-XSS-Protection":        "1; mode=block",
	"Content-Security-Policy": contentSecurityPolicy,
	"Referrer-Policy":         "strict-origin-when-cross-origin",
	"Permissions-Policy":      "geolocation=(), microphone=(), camera=()",
}

// SecureHeaders adds security headers to responses. HSTS is sent over HTTPS
// and always in production, where TLS terminates in front of the server.
func SecureHeaders(production bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for name, value := range staticSecurityHeaders {
				h.Set(name, value)
			}

			if production || c.Scheme() == "https" {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			return next(c)
		}
	}
}
