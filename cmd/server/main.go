package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"anoa.com/boardpush/internal/config"
	"anoa.com/boardpush/internal/server"
	"anoa.com/boardpush/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to start server", zap.Error(err))
	}

	zapLogger.Info("push dispatcher starting",
		zap.String("env", cfg.AppEnv),
		zap.String("event_source", cfg.EventSource),
		zap.String("push_driver", cfg.PushDriver),
		zap.String("board_lookup", cfg.BoardLookup),
	)

	if err := srv.Run(ctx); err != nil {
		zapLogger.Fatal("server exited with error", zap.Error(err))
	}
}
