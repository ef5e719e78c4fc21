package offers

import (
	"context"
	"fmt"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/sony/gobreaker"
)

type client interface {
	Fetch(ctx context.Context, q models.OfferQuery) (*models.Offer, error)
}

type BreakerConfig struct {
	TimeInterval time.Duration
	TimeTimeOut  time.Duration
	RepeatNumber uint32
}

// BreakerClient stops calling the feed after RepeatNumber consecutive failures.
type BreakerClient struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	wrapped client
}

func NewBreakerClient(name string, cfg BreakerConfig, wrapped client) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.TimeInterval,
		Timeout:     cfg.TimeTimeOut,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.RepeatNumber
		},
	}
	return &BreakerClient{
		name:    name,
		cb:      gobreaker.NewCircuitBreaker(settings),
		wrapped: wrapped,
	}
}

func (b *BreakerClient) Fetch(ctx context.Context, q models.OfferQuery) (*models.Offer, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.wrapped.Fetch(ctx, q)
	})
	if err != nil {
		return nil, fmt.Errorf("%s unavailable: %w", b.name, err)
	}
	res, ok := result.(*models.Offer)
	if !ok {
		return nil, fmt.Errorf("%s returned unexpected result", b.name)
	}
	return res, nil
}
