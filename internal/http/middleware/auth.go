package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/you/branchauth/domain"
)

// SessionMW wraps the auth service for privileged-request middleware
type SessionMW struct {
	authSvc domain.AuthService
}

// NewSessionMW creates new session middleware
func NewSessionMW(authSvc domain.AuthService) *SessionMW {
	return &SessionMW{authSvc: authSvc}
}

// WithSession returns middleware that resolves the bearer session token
// against the session store on every request, so revocation takes effect
// immediately.
func (mw *SessionMW) WithSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authorization header required", "reason": "invalid_token"})
			c.Abort()
			return
		}

		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid authorization header format", "reason": "invalid_token"})
			c.Abort()
			return
		}

		principal, err := mw.authSvc.Introspect(c.Request.Context(), tokenParts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Session invalid or expired", "reason": "invalid_token"})
			c.Abort()
			return
		}

		c.Set("principal", principal)
		c.Set("principal_id", principal.ID)
		c.Next()
	}
}
