package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"resumate/internal/api/middleware"
	"resumate/internal/auth"
)

// requireSession returns the caller's session or writes 401.
func requireSession(c *gin.Context) (auth.Session, bool) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return auth.Session{}, false
	}
	return session, true
}

func loggerFor(c *gin.Context, session auth.Session) *slog.Logger {
	return middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(session.UserID)))
}
