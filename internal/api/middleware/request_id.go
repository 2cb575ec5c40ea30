package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CorrelationHeader carries the request identifier in both directions.
const CorrelationHeader = "X-Correlation-ID"

type correlationCtxKey struct{}

const correlationGinKey = "correlationID"

// acceptableID allows caller-chosen IDs that are short printable ASCII without spaces.
func acceptableID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

// RequestID adopts the caller's correlation ID when it looks sane, otherwise mints
// a UUID. The ID is echoed on the response and attached to the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationHeader)
		if !acceptableID(id) {
			id = uuid.NewString()
		}
		c.Set(correlationGinKey, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), correlationCtxKey{}, id))
		c.Header(CorrelationHeader, id)
		c.Next()
	}
}

// GetCorrelationID returns the ID assigned by RequestID.
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(correlationGinKey)
}

// CorrelationID reads the ID from a request-derived context.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationCtxKey{}).(string)
	return id
}
