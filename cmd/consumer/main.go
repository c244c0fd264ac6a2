package main

import (
	"context"
	"os/signal"
	"syscall"

	"go-expense/internal/app"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg := app.LoadConfig()
	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.RunLifecycleConsumer(ctx); err != nil {
		logger.Fatal("lifecycle consumer failed", zap.Error(err))
	}
}
