package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// callerKey is the gin context key under which the caller identity is stored.
const callerKey = "caller"

// Middleware resolves the caller identity from the Authorization header. Requests without the
// header continue with an empty identity, and the services decide whether that is acceptable.
// Requests with a malformed or invalid bearer token are rejected with 401.
func Middleware(secretKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		scheme, tokenString, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid authorization header"})
			return
		}
		caller, err := CallerFromToken(tokenString, secretKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// Caller returns the identity stored by Middleware, or an empty string.
func Caller(c *gin.Context) string {
	return c.GetString(callerKey)
}
