package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gstaudit/internal/service"
)

const (
	ContextKeySubject = "subject"
	ContextKeyClaims  = "claims"

	// APIKeyHeader carries a static API key as an alternative to a bearer token.
	APIKeyHeader = "X-API-Key"
)

// AuthMiddleware returns Gin middleware that accepts either a valid JWT bearer
// token or a valid API key and injects the caller subject.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(APIKeyHeader); key != "" {
			if err := authService.ValidateAPIKey(key); err != nil {
				abortUnauthorized(c, "invalid API key")
				return
			}
			c.Set(ContextKeySubject, "api-key")
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "missing or invalid authorization header")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := authService.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextKeySubject, claims.Subject)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": "UNAUTHORIZED", "message": msg},
	})
}

// GetSubject extracts the authenticated caller from the Gin context.
func GetSubject(c *gin.Context) string {
	val, exists := c.Get(ContextKeySubject)
	if !exists {
		return ""
	}
	return val.(string)
}
