package main

import (
	"context"
	"log"
	"os"
	"time"

	"chatsphere/internal/auth"
	"chatsphere/internal/cache"
	"chatsphere/internal/config"
	"chatsphere/internal/controller"
	"chatsphere/internal/events"
	"chatsphere/internal/media"
	"chatsphere/internal/server"
	"chatsphere/internal/transport"
	"chatsphere/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(l)

	token := os.Getenv("SESSION_TOKEN")
	verifier := auth.NewVerifier(cfg.Server.SessionSecret)
	claims, err := verifier.Verify(token)
	if err != nil {
		l.Errorf("SESSION_TOKEN missing or invalid: %v", err)
		os.Exit(1)
	}
	selfID := claims.Subject
	l.Infof("Starting sync daemon for user %s", selfID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	historyCache, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		l.Warnf("Redis unavailable, running without offline cache: %v", err)
	}

	var uploader controller.Uploader
	if cfg.S3.Bucket != "" {
		s3Uploader, err := media.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			l.Warnf("S3 unavailable, attachments disabled: %v", err)
		} else {
			uploader = s3Uploader
		}
	}

	api := transport.NewAPIClient(cfg.Remote, token, l)

	var ctrl *controller.Controller
	wire := transport.NewWSClient(cfg.Remote, token, func(env events.Envelope) {
		ctrl.HandleWire(env)
	}, l)

	opts := controller.Options{
		SelfID:   selfID,
		API:      api,
		Uploader: uploader,
		Wire:     wire,
		Log:      l,
	}
	if historyCache != nil {
		opts.Cache = historyCache
	}
	ctrl = controller.New(cfg, opts)
	ctrl.Start()

	go wire.Run()

	srv := server.New(cfg, l)
	srv.SetupRoutes(ctrl, verifier, selfID)

	if err := srv.Start(); err != nil {
		l.Errorf("Server shutdown failed: %v", err)
	}

	wire.Close()
	ctrl.Close()
	if historyCache != nil {
		_ = historyCache.Close()
	}
}
