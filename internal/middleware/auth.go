package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/respectgame/api/internal/auth"
	"github.com/respectgame/api/internal/model"
)

const identityKey = "identity"

// SessionChecker looks up a backend login session that is neither revoked nor expired.
type SessionChecker interface {
	ActiveUserSession(ctx context.Context, sessionID string) (*model.UserSession, error)
}

// AuthMiddleware requires a valid access token backed by a live login session
func AuthMiddleware(jwtSecret string, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := authenticate(c, jwtSecret, sessions)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware
func AdminMiddleware(admins *auth.AdminList) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := GetIdentity(c)
		if !id.Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		if !admins.IsAdmin(id.WalletAddress) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware sets the identity if a valid token is present, but doesn't require it
func OptionalAuthMiddleware(jwtSecret string, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := authenticate(c, jwtSecret, sessions); ok {
			c.Set(identityKey, id)
		}
		c.Next()
	}
}

// GetIdentity returns the caller identity, or the zero Identity for anonymous requests.
func GetIdentity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func authenticate(c *gin.Context, jwtSecret string, sessions SessionChecker) (auth.Identity, bool) {
	token, ok := bearerToken(c)
	if !ok {
		return auth.Identity{}, false
	}

	claims, err := auth.ValidateAccessToken(token, jwtSecret)
	if err != nil {
		return auth.Identity{}, false
	}

	if sessions != nil {
		us, err := sessions.ActiveUserSession(c.Request.Context(), claims.SessionID)
		if err != nil || !strings.EqualFold(us.WalletAddress, claims.WalletAddress) {
			return auth.Identity{}, false
		}
	}

	return auth.Identity{
		WalletAddress: claims.WalletAddress,
		SessionID:     claims.SessionID,
		Authenticated: true,
	}, true
}
