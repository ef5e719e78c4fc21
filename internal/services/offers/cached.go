package offers

import (
	"context"
	"fmt"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/rs/zerolog"
)

type cacheClient[T any] interface {
	Set(ctx context.Context, key string, value T, expiration time.Duration) error
	Get(ctx context.Context, key string, returnValue *T) error
}

// CachedClient shares one feed answer between alerts watching the same connection.
// An empty answer is cached too.
type CachedClient struct {
	inner    client
	cache    cacheClient[*models.Offer]
	logger   zerolog.Logger
	liveTime time.Duration
}

func NewCachedClient(
	inner client,
	cache cacheClient[*models.Offer],
	logger zerolog.Logger,
	liveTime time.Duration,
) *CachedClient {
	return &CachedClient{
		inner:    inner,
		cache:    cache,
		logger:   logger.With().Str("component", "CachedOfferClient").Logger(),
		liveTime: liveTime,
	}
}

func cacheKey(q models.OfferQuery) string {
	return fmt.Sprintf("offers:%s:%s:%s:%d", q.TrainNumber, q.From, q.To, q.DepartureMillis)
}

func (c *CachedClient) Fetch(ctx context.Context, q models.OfferQuery) (*models.Offer, error) {
	key := cacheKey(q)

	var offer *models.Offer
	if err := c.cache.Get(ctx, key, &offer); err == nil {
		c.logger.Debug().Ctx(ctx).Str("key", key).Msg("cache hit")
		return offer, nil
	}

	c.logger.Debug().Ctx(ctx).Str("key", key).Msg("cache miss")
	offer, err := c.inner.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, offer, c.liveTime); err != nil {
		c.logger.Warn().Err(err).Ctx(ctx).Str("key", key).Msg("cache set failed")
	}

	return offer, nil
}
