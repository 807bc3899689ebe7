package middleware

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/readmate/readmate/internal/pkg/logutil"
)

const ContextRequestIDKey = "request_id"

// RequestID tags every request with an id and binds a request-scoped
// logger into the context so downstream logs carry the id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = newRequestID()
		}
		c.Set(ContextRequestIDKey, id)
		c.Writer.Header().Set("X-Request-Id", id)

		logger := logutil.GetLogger(c.Request.Context()).With(zap.String("request_id", id))
		c.Request = c.Request.WithContext(logutil.WithLogger(c.Request.Context(), logger))
		c.Next()
	}
}

func newRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf)
}
