package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatsphere/internal/auth"
	"chatsphere/internal/transport/httpdto"
	"chatsphere/pkg/logger"
)

// AuthMiddleware verifies the session token locally. The daemon serves one
// user; a token for anyone else is rejected the same as a bad one.
func AuthMiddleware(verifier *auth.Verifier, selfID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractBearer(c.GetHeader("Authorization"))
		claims, err := verifier.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}
		if claims.Subject != selfID {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		ctx := context.WithValue(c.Request.Context(), logger.UserIdKey, claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
