package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/consumer"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/emailer"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/producers"
	"github.com/Nazarious-ucu/nightjet-alerts/pkg/messaging"
	"github.com/gin-gonic/gin"
)

// RunWorker relays queued ticket emails over SMTP until ctx is done.
func (a *App) RunWorker(ctx context.Context) error {
	conn, err := a.setupConn()
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			a.l.Error().Err(err).Msg("RabbitMQ close error")
		}
	}()

	publisher, err := a.setupPublisher(conn)
	if err != nil {
		a.l.Error().Err(err).Msg("Failed to setup delivery publisher")
		return err
	}
	defer publisher.Close()

	ticketsConsumer, err := a.setupConsumer(conn, messaging.TicketsQueueName, messaging.TicketsRoutingKey)
	if err != nil {
		a.l.Error().Err(err).Msg("Failed to setup tickets consumer")
		return err
	}
	defer ticketsConsumer.Close()

	relay := consumer.NewConsumer(
		emailer.NewSMTPService(&a.cfg, a.l),
		producers.NewProducer(publisher, a.l),
		a.l,
		a.m,
		a.cfg.Checker.CallTimeout,
	)
	go func() {
		if err := ticketsConsumer.Run(relay.ReceiveTicketsAvailable); err != nil {
			a.l.Error().Err(err).Msg("tickets consumer stopped")
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(a.m.Handler()))
	srv := &http.Server{
		Addr:              a.cfg.ServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.l.Error().Err(err).Msg("metrics server error")
		}
	}()

	a.l.Info().Str("queue", messaging.TicketsQueueName).Msg("Notification worker started")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.l.Error().Err(err).Msg("metrics server shutdown error")
	}
	a.l.Info().Msg("Notification worker stopped")
	return nil
}
