package main

import (
	"time"

	"go-expense/internal/app"
	"go-expense/internal/bootstrap"
	"go-expense/internal/shared/apperror"

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

	apperror.Init()

	cfg := app.LoadConfig()
	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	router, err := a.BuildRouter()
	if err != nil {
		logger.Fatal("router wiring failed", zap.Error(err))
	}

	bootstrap.StartHTTPServer(router, bootstrap.ServerConfig{
		Port:         cfg.Port,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, bootstrap.NewStdoutAuditLogger())
}
