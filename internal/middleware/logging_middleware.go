package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"chatsphere/pkg/logger"
)

func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		if log != nil {
			// Read the context after the handler chain ran so fields set by
			// later middleware (user, conversation) are on the entry.
			log.WithContext(c.Request.Context()).Sugar().
				Infof("%s %s %d %s", method, path, status, latency.String())
		}
	}
}
