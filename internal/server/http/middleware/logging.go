package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scalekarrt/orderdesk/internal/domain/model"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger logs every request with its correlation id and, when the
// auth middleware ran first, the acting principal. An id supplied by the
// caller is kept; otherwise one is minted and echoed on the response.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = newRequestID()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		attrs := []any{
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.Int("bytes", c.Writer.Size()),
		}
		if v, ok := c.Get(PrincipalContextKey); ok {
			if principal, ok := v.(model.Principal); ok {
				attrs = append(attrs,
					slog.Int64("user_id", principal.UserID),
					slog.String("role", string(principal.Role)),
				)
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error("http request", attrs...)
			return
		}
		logger.Info("http request", attrs...)
	}
}

func newRequestID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf[:])
}
