package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/respectgame/api/internal/ratelimit"
)

type RateChecker interface {
	Check(ctx context.Context, clientID, action string) (*ratelimit.CheckResult, error)
}

// RateLimit limits action per caller wallet, falling back to the client IP
// for anonymous requests. Counter errors let the request through.
func RateLimit(limiter RateChecker, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		clientID := GetIdentity(c).WalletAddress
		if clientID == "" {
			clientID = c.ClientIP()
		}

		result, err := limiter.Check(c.Request.Context(), clientID, action)
		if err != nil {
			slog.Warn("rate limit check failed", "action", action, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
