package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/deckforge/deckforge-backend/internal/logger"
)

const userIDKey = "userID"

// IdentityMiddleware trusts the identity asserted by the edge proxy. The
// gateway in front of this service authenticates the caller and forwards the
// subject in X-User-ID.
type IdentityMiddleware struct {
	log *logger.Logger
}

func NewIdentityMiddleware(log *logger.Logger) *IdentityMiddleware {
	return &IdentityMiddleware{log: log.With("middleware", "Identity")}
}

func (m *IdentityMiddleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing X-User-ID header", "code": "unauthorized"},
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated subject for the request.
func UserID(c *gin.Context) (string, error) {
	userID := c.GetString(userIDKey)
	if userID == "" {
		return "", fmt.Errorf("no user identity on request")
	}
	return userID, nil
}
