package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"factoryops.app/assistant/common/logger"
)

const RequestIDHeader = "X-Request-Id"

// RequestID reuses the caller's X-Request-Id or assigns one, echoes it on the
// response, and puts it on the request context's log fields.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		c.Header(RequestIDHeader, requestID)
		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{RequestID: logger.Ptr(requestID)})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
