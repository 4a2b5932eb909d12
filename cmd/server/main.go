package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/skillexchange/exchange-service/internal/app"
	"github.com/skillexchange/exchange-service/internal/config"
	"github.com/skillexchange/exchange-service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("exchange-service", cfg.LogLevel)
	log.Info("starting exchange service",
		"environment", cfg.Environment,
		"http_port", cfg.HTTPPort,
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Error("application error", "error", err)
		os.Exit(1)
	}
}
