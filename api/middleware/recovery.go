package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery returns a gin middleware turning a panic in a handler into a
// 500 response. The response carries the request id so a failed resolve
// can be matched with its log entry.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}

			requestID := c.GetString(requestIDKey)
			log.Error("Panic recovered",
				zap.Any("error", err),
				zap.String("request_id", requestID),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("page_url", c.Query("url")),
				zap.Stack("stack"),
			)

			body := gin.H{"error": "Internal server error"}
			if requestID != "" {
				body["request_id"] = requestID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
