package app

import (
	"github.com/Nazarious-ucu/nightjet-alerts/pkg/messaging"
	"github.com/wagslane/go-rabbitmq"
)

func (a *App) setupConn() (*rabbitmq.Conn, error) {
	conn, err := rabbitmq.NewConn(
		a.cfg.RabbitMQ.Address(),
		rabbitmq.WithConnectionOptionsLogging,
	)
	if err != nil {
		a.l.Error().Err(err).Msg("Failed to connect to RabbitMQ")
		return nil, err
	}

	a.l.Info().Msg("Connected to RabbitMQ successfully")
	return conn, nil
}

// setupPublisher declares the notifications exchange and publishes email events to it.
func (a *App) setupPublisher(conn *rabbitmq.Conn) (*rabbitmq.Publisher, error) {
	publisher, err := rabbitmq.NewPublisher(
		conn,
		rabbitmq.WithPublisherOptionsExchangeName(messaging.ExchangeName),
		rabbitmq.WithPublisherOptionsExchangeDeclare,
		rabbitmq.WithPublisherOptionsExchangeDurable,
		rabbitmq.WithPublisherOptionsLogging,
	)
	if err != nil {
		return nil, err
	}

	publisher.NotifyReturn(func(r rabbitmq.Return) {
		a.l.Warn().
			Int("reply_code", int(r.ReplyCode)).
			Str("routing_key", r.RoutingKey).
			Msg("message returned from server")
	})

	return publisher, nil
}

// setupConsumer binds a durable queue to the notifications exchange.
func (a *App) setupConsumer(conn *rabbitmq.Conn, queue, routingKey string) (*rabbitmq.Consumer, error) {
	return rabbitmq.NewConsumer(
		conn,
		queue,
		rabbitmq.WithConsumerOptionsExchangeName(messaging.ExchangeName),
		rabbitmq.WithConsumerOptionsExchangeDeclare,
		rabbitmq.WithConsumerOptionsExchangeDurable,
		rabbitmq.WithConsumerOptionsRoutingKey(routingKey),
		rabbitmq.WithConsumerOptionsQueueDurable,
	)
}
