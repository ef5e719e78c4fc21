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

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Panicf("failed to load configuration: %v", err)
	}

	l, err := logger.NewLogger("logs/notification.log", "notification")
	if err != nil {
		log.Panicf("failed to init logger: %v", err)
	}

	application := app.New(*cfg, l, metrics.NewMetrics("notification_service"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.RunWorker(ctx); err != nil {
		log.Panic(err)
	}
}
