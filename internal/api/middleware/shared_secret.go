package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SharedSecret guards operator endpoints. The secret is accepted in X-Internal-Secret
// or as a bearer token, which is what Prometheus sends with bearer_token set.
// An empty secret leaves the route open.
func SharedSecret(secret string) gin.HandlerFunc {
	want := []byte(strings.TrimSpace(secret))
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}
		got := strings.TrimSpace(c.GetHeader("X-Internal-Secret"))
		if got == "" {
			if scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
				got = strings.TrimSpace(token)
			}
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
