package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-chat-backend/internal/api/response"
	"github.com/welldanyogia/webrana-chat-backend/internal/auth"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
)

// identityKey is the echo context key holding the caller's auth.Identity
const identityKey = "identity"

// RequireUser rejects requests without a valid session with 401 before the
// handler runs. The resolved identity is available through IdentityFrom.
func RequireUser(authn auth.Authenticator, security *logger.SecurityLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, err := authn.Identify(c.Request())
			if err != nil {
				if security != nil {
					security.AuthFailure(c.RealIP(), c.Path(), "missing or invalid session")
				}
				return response.Error(c, err)
			}

			SetIdentity(c, identity)
			return next(c)
		}
	}
}

// SetIdentity attaches identity to the request context
func SetIdentity(c echo.Context, identity auth.Identity) {
	c.Set(identityKey, identity)
}

// IdentityFrom returns the identity stored by RequireUser
func IdentityFrom(c echo.Context) (auth.Identity, bool) {
	identity, ok := c.Get(identityKey).(auth.Identity)
	return identity, ok
}
