package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/metrics"
	"github.com/Nazarious-ucu/nightjet-alerts/pkg/messaging"
	"github.com/rs/zerolog"
	"github.com/wagslane/go-rabbitmq"
)

type mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type confirmer interface {
	Delivered(ctx context.Context, alertID string) error
}

// Consumer relays queued email events to the live mail transport.
type Consumer struct {
	mailer    mailer
	confirmer confirmer
	logger    zerolog.Logger
	m         *metrics.Metrics
	timeout   time.Duration
}

func NewConsumer(
	mailer mailer,
	confirmer confirmer,
	logger zerolog.Logger,
	m *metrics.Metrics,
	timeout time.Duration,
) *Consumer {
	return &Consumer{
		mailer:    mailer,
		confirmer: confirmer,
		logger:    logger.With().Str("component", "Consumer").Logger(),
		m:         m,
		timeout:   timeout,
	}
}

// ReceiveTicketsAvailable handles EmailEvent messages. Malformed payloads are discarded,
// failed sends are requeued once. Only a sent email is confirmed back to the alert service,
// so a dropped one leaves the alert unmarked and the next due cycle sends it again.
func (c *Consumer) ReceiveTicketsAvailable(d rabbitmq.Delivery) rabbitmq.Action {
	c.logger.Debug().
		Int("size", len(d.Body)).
		Msg("received email event")

	var evt messaging.EmailEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		c.logger.Error().Err(err).Msg("unmarshal error")
		c.m.NotificationsSent.WithLabelValues("malformed").Inc()
		return rabbitmq.NackDiscard
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.mailer.Send(ctx, evt.To, evt.Subject, evt.HTML); err != nil {
		c.logger.Error().Err(err).
			Str("to", evt.To).
			Str("alert_id", evt.AlertID).
			Bool("redelivered", d.Redelivered).
			Msg("failed to relay email")
		c.m.NotificationsSent.WithLabelValues("relay_failed").Inc()
		if d.Redelivered {
			return rabbitmq.NackDiscard
		}
		return rabbitmq.NackRequeue
	}

	c.logger.Info().Str("to", evt.To).Str("alert_id", evt.AlertID).Msg("email relayed")
	c.m.NotificationsSent.WithLabelValues("relayed").Inc()

	if evt.AlertID != "" {
		if err := c.confirmer.Delivered(ctx, evt.AlertID); err != nil {
			// the email is out; at worst the owner gets it again next cycle
			c.logger.Error().Err(err).Str("alert_id", evt.AlertID).Msg("failed to confirm delivery")
			c.m.NotificationsSent.WithLabelValues("confirm_failed").Inc()
		}
	}
	return rabbitmq.Ack
}
