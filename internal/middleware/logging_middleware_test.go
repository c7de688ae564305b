package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"chatsphere/pkg/logger"
)

func TestLoggingMiddlewareCarriesContextFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, observed := observer.New(zapcore.InfoLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(log))
	router.GET("/conversations/:id/messages", ConversationContextMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/conversations/peer-1/messages", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	entries := observed.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "peer-1", fields["conversation_id"])
}

func TestLoggingMiddlewareOmitsAbsentFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, observed := observer.New(zapcore.InfoLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	router := gin.New()
	router.Use(LoggingMiddleware(log))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	entries := observed.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.NotContains(t, fields, "request_id")
	assert.NotContains(t, fields, "conversation_id")
}
