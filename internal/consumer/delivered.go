package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/metrics"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/Nazarious-ucu/nightjet-alerts/pkg/messaging"
	"github.com/rs/zerolog"
	"github.com/wagslane/go-rabbitmq"
)

type notifiedMarker interface {
	UpdateNotified(ctx context.Context, id string, notified bool) error
}

// DeliveryConsumer sets the notified marker of alerts whose email the relay worker sent.
type DeliveryConsumer struct {
	store   notifiedMarker
	logger  zerolog.Logger
	m       *metrics.Metrics
	timeout time.Duration
}

func NewDeliveryConsumer(
	store notifiedMarker,
	logger zerolog.Logger,
	m *metrics.Metrics,
	timeout time.Duration,
) *DeliveryConsumer {
	return &DeliveryConsumer{
		store:   store,
		logger:  logger.With().Str("component", "DeliveryConsumer").Logger(),
		m:       m,
		timeout: timeout,
	}
}

func (c *DeliveryConsumer) ReceiveDelivered(d rabbitmq.Delivery) rabbitmq.Action {
	var evt messaging.DeliveredEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil || evt.AlertID == "" {
		c.logger.Error().Err(err).Msg("malformed delivery event")
		c.m.NotificationsSent.WithLabelValues("malformed").Inc()
		return rabbitmq.NackDiscard
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	err := c.store.UpdateNotified(ctx, evt.AlertID, true)
	switch {
	case err == nil:
		c.logger.Debug().Str("alert_id", evt.AlertID).Msg("delivery confirmed")
		c.m.NotificationsSent.WithLabelValues("confirmed").Inc()
		return rabbitmq.Ack
	case errors.Is(err, models.ErrAlertNotFound):
		c.logger.Warn().Str("alert_id", evt.AlertID).Msg("delivery confirmed for a deleted alert")
		return rabbitmq.Ack
	default:
		c.logger.Error().Err(err).
			Str("alert_id", evt.AlertID).
			Bool("redelivered", d.Redelivered).
			Msg("failed to mark alert notified")
		c.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
		if d.Redelivered {
			return rabbitmq.NackDiscard
		}
		return rabbitmq.NackRequeue
	}
}
