package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumate/internal/auth"
)

const sessionKey = "session"

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// Authenticator resolves a bearer access token into a session.
type Authenticator interface {
	Authenticate(token string) (auth.Session, error)
}

// AuthMiddleware rejects requests without a valid access token and stores the
// resolved auth.Session on the context.
func AuthMiddleware(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		session, err := authenticator.Authenticate(parts[1])
		if err != nil || !session.Valid() {
			LoggerFromContext(c).Debug("rejected access token")
			abortUnauthorized(c)
			return
		}

		SetSession(c, session)
		c.Next()
	}
}

// SetSession stores session on the context.
func SetSession(c *gin.Context, session auth.Session) {
	c.Set(sessionKey, session)
}

// SessionFromContext returns the session set by AuthMiddleware.
func SessionFromContext(c *gin.Context) (auth.Session, bool) {
	value, ok := c.Get(sessionKey)
	if !ok {
		return auth.Session{}, false
	}
	session, ok := value.(auth.Session)
	if !ok || !session.Valid() {
		return auth.Session{}, false
	}
	return session, true
}
