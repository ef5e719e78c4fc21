package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/app"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/config"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/metrics"
	"github.com/Nazarious-ucu/nightjet-alerts/pkg/logger"
	"github.com/joho/godotenv"
)

// @title NightJet Alerts API
// @version 1.0
// @description API for registering NightJet ticket alerts and triggering availability checks
// @host localhost:3001
// @BasePath /
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Panicf("failed to load configuration: %v", err)
	}

	l, err := logger.NewLogger(cfg.LogsPath, "alerts")
	if err != nil {
		log.Panicf("failed to init logger: %v", err)
	}

	m := metrics.NewMetrics("alerts_service")

	application := app.New(*cfg, l, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.Panic(err)
	}
}
