package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long an IP may stay silent before its limiter is evicted
const idleLimiterTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter manages rate limiters per IP address
type IPRateLimiter struct {
	visitors  map[string]*visitor
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	lastSweep time.Time
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors:  make(map[string]*visitor),
		rate:      r,
		burst:     b,
		lastSweep: time.Now(),
	}
}

// GetLimiter returns the rate limiter for the given IP. Idle entries are
// evicted on the way.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := time.Now()
	if now.Sub(i.lastSweep) > idleLimiterTTL {
		i.evictLocked(now.Add(-idleLimiterTTL))
		i.lastSweep = now
	}

	v, exists := i.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(i.rate, i.burst)}
		i.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter
}

// CleanupIdle removes limiters not used within idle and returns how many
// were removed
func (i *IPRateLimiter) CleanupIdle(idle time.Duration) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.evictLocked(time.Now().Add(-idle))
}

func (i *IPRateLimiter) evictLocked(before time.Time) int {
	removed := 0
	for ip, v := range i.visitors {
		if v.lastSeen.Before(before) {
			delete(i.visitors, ip)
			removed++
		}
	}
	return removed
}

// RateLimiterWithConfig returns per-IP rate limiting middleware. Rejections
// are reported to the security log when one is given.
func RateLimiterWithConfig(requestsPerSecond float64, burst int, security *logger.SecurityLogger) echo.MiddlewareFunc {
	limiter := NewIPRateLimiter(rate.Limit(requestsPerSecond), burst)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			l := limiter.GetLimiter(ip)

			if !l.Allow() {
				if security != nil {
					security.RateLimitExceeded(ip, c.Path())
				}

				c.Response().Header().Set("Retry-After", "60")
				return echo.NewHTTPError(http.StatusTooManyRequests, map[string]string{
					"error":       "rate limit exceeded",
					"code":        "RATE_LIMITED",
					"retry_after": "60",
				})
			}

			return next(c)
		}
	}
}
