package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cleberrangel/brickrate-api/internal/logger"
)

const (
	// HeaderRequestID é o header HTTP para request ID
	HeaderRequestID = "X-Request-ID"
	// HeaderTraceID é o header HTTP para trace ID
	HeaderTraceID = "X-Trace-ID"

	maxRequestIDLength = 64
)

// RequestID atribui request_id e trace_id à requisição e ao logger do contexto.
// IDs recebidos nos headers são reaproveitados depois de sanitizados.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := incomingID(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.New().String()[:8]
		}

		traceID := incomingID(c.GetHeader(HeaderTraceID))
		if traceID == "" {
			traceID = uuid.New().String()
		}

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		ctx = logger.WithTraceID(ctx, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}

func incomingID(raw string) string {
	id := SanitizeID(raw)
	if len(id) > maxRequestIDLength {
		id = id[:maxRequestIDLength]
	}
	return id
}
