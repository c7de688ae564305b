package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"chatsphere/internal/auth"
	"chatsphere/internal/config"
	"chatsphere/internal/controller"
	"chatsphere/internal/middleware"
	"chatsphere/internal/transport/httpdto"
	"chatsphere/pkg/logger"
)

// Server is the local HTTP surface of the daemon: the command API plus the
// websocket update stream, both bound for the presentation layer on the same
// machine.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "production"
	TestMode    = "test"
)

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.Server.Environment == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.Server.Environment == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(ctrl *controller.Controller, verifier *auth.Verifier, selfID string) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	handler := NewHandler(ctrl, s.logger)
	stream := NewUpdateStreamHandler(ctrl, verifier, selfID, s.logger)

	api := s.engine.Group("/api", middleware.AuthMiddleware(verifier, selfID))
	{
		api.GET("/conversations", handler.ListConversations)
		conv := api.Group("/conversations/:id", middleware.ConversationContextMiddleware())
		{
			conv.POST("/focus", handler.Focus)
			conv.GET("/messages", handler.ListMessages)
			conv.POST("/messages", handler.SendMessage)
			conv.GET("/messages/:messageId/reply", handler.GetReplyPreview)
			conv.POST("/messages/:messageId/retry", handler.RetryMessage)
			conv.DELETE("/messages/:messageId/draft", handler.DiscardMessage)
			conv.DELETE("/messages/:messageId", handler.DeleteMessage)
			conv.POST("/typing", handler.SetTyping)
			conv.GET("/typing", handler.GetTyping)
			conv.GET("/unseen", handler.GetUnseen)
			conv.POST("/scroll", handler.NoteScroll)
		}
		api.GET("/users/:id/presence", handler.GetPresence)
		api.PUT("/profile", handler.UpdateProfile)
	}

	// Token rides the query string here; browsers cannot set headers on a
	// websocket upgrade.
	s.engine.GET("/api/events", stream.Handle)
}

// Start serves until SIGINT/SIGTERM, then drains for up to five seconds.
func (s *Server) Start() error {
	go func() {
		s.logger.Infof("Starting the server on port %s...", s.config.Server.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Error in starting the server: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	s.logger.Infof("Server is running on :%s", s.config.Server.Port)

	<-quit

	s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
