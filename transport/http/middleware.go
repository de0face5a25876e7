package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityTokenKey = "identityToken"

// IdentityTokenMiddleware extracts the bearer identity token. Validation
// happens in the session issuer, which owns the ordered check sequence;
// this middleware only rejects requests with no token at all.
func IdentityTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity token"})
			return
		}

		c.Set(identityTokenKey, token)
		c.Next()
	}
}

func identityToken(c *gin.Context) string {
	token, _ := c.Get(identityTokenKey)
	s, _ := token.(string)
	return s
}
