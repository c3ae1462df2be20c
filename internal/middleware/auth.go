// Package middleware provides gin middleware for authentication,
// request logging, and metrics.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tallyup/tallyup/internal/auth"
)

const (
	// userIDKey is the gin context key for the authenticated user ID.
	userIDKey = "user_id"
	// emailKey is the gin context key for the authenticated email.
	emailKey = "email"
	// displayNameKey is the gin context key for the display name.
	displayNameKey = "display_name"
)

// UserID extracts the authenticated user ID from the request context.
// Returns empty string if the request is unauthenticated.
func UserID(c *gin.Context) string {
	id, _ := c.Get(userIDKey)
	s, _ := id.(string)
	return s
}

// Email extracts the authenticated email from the request context.
func Email(c *gin.Context) string {
	email, _ := c.Get(emailKey)
	s, _ := email.(string)
	return s
}

// DisplayName extracts the authenticated display name from the request
// context.
func DisplayName(c *gin.Context) string {
	name, _ := c.Get(displayNameKey)
	s, _ := name.(string)
	return s
}

// RequireAuth validates the Bearer token on every request and stores the
// session claims in the gin context. Requests without a valid token are
// rejected with 401 before reaching the handler.
func RequireAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingToken.Error()})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		claims, err := jwtManager.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(emailKey, claims.Email)
		c.Set(displayNameKey, claims.DisplayName)
		c.Next()
	}
}
