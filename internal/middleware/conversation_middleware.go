package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"chatsphere/pkg/logger"
)

// ConversationContextMiddleware stamps the conversation id from the route
// onto the request context so every log line for a conversation-scoped
// request carries it.
func ConversationContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.Param("id"); id != "" {
			ctx := context.WithValue(c.Request.Context(), logger.ConversationIdKey, id)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
