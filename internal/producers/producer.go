package producers

import (
	"context"
	"encoding/json"

	"github.com/Nazarious-ucu/nightjet-alerts/pkg/messaging"
	"github.com/rs/zerolog"
	"github.com/wagslane/go-rabbitmq"
)

type publisher interface {
	PublishWithContext(
		ctx context.Context,
		data []byte,
		routingKeys []string,
		optionFuncs ...func(*rabbitmq.PublishOptions),
	) error
}

// Producer is the queue transport: it hands rendered mail to the notification worker.
type Producer struct {
	prod publisher
	log  zerolog.Logger
}

func NewProducer(prod publisher, logger zerolog.Logger) *Producer {
	return &Producer{
		prod: prod,
		log:  logger.With().Str("component", "Producer").Logger(),
	}
}

func (p *Producer) Publish(ctx context.Context, routingKey []string, body []byte) error {
	if err := p.prod.PublishWithContext(
		ctx,
		body,
		routingKey,
		rabbitmq.WithPublishOptionsContentType("application/json"),
		rabbitmq.WithPublishOptionsMandatory,
		rabbitmq.WithPublishOptionsPersistentDelivery,
		rabbitmq.WithPublishOptionsExchange(messaging.ExchangeName),
	); err != nil {
		p.log.Error().Err(err).Ctx(ctx).Strs("routing_key", routingKey).Msg("failed to publish message")
		return err
	}
	p.log.Debug().Ctx(ctx).Strs("routing_key", routingKey).Msg("message published")
	return nil
}

// Send publishes an email event. A publish failure is a delivery failure.
func (p *Producer) Send(ctx context.Context, to, subject, html string) error {
	return p.SendAlert(ctx, "", to, subject, html)
}

// SendAlert publishes an email event tied to an alert, so the worker can confirm delivery.
func (p *Producer) SendAlert(ctx context.Context, alertID, to, subject, html string) error {
	body, err := json.Marshal(messaging.EmailEvent{
		AlertID: alertID,
		To:      to,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return err
	}

	return p.Publish(ctx, []string{messaging.TicketsRoutingKey}, body)
}

// Delivered reports that the email for alertID was handed to the mail relay.
func (p *Producer) Delivered(ctx context.Context, alertID string) error {
	body, err := json.Marshal(messaging.DeliveredEvent{AlertID: alertID})
	if err != nil {
		return err
	}

	return p.Publish(ctx, []string{messaging.DeliveredRoutingKey}, body)
}
