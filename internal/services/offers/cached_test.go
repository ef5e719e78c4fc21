package offers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/cache"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/services/offers"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*miniredis.Miniredis, *cache.RedisClient[*models.Offer]) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, cache.NewRedisClient[*models.Offer](rdb, zerolog.Nop())
}

func TestCachedClient_SecondFetchHitsCache(t *testing.T) {
	_, rc := newCache(t)
	inner := new(mockFetcher)
	inner.On("Fetch", mock.Anything, query).Return(availableOffer(), nil).Once()
	t.Cleanup(func() { inner.AssertExpectations(t) })

	c := offers.NewCachedClient(inner, rc, zerolog.Nop(), time.Minute)

	first, err := c.Fetch(context.Background(), query)
	require.NoError(t, err)
	second, err := c.Fetch(context.Background(), query)
	require.NoError(t, err)

	assert.True(t, first.HasTickets())
	assert.True(t, second.HasTickets())
	assert.True(t, first.BestOffers.BE.Price.Equal(second.BestOffers.BE.Price))
}

func TestCachedClient_CachesEmptyAnswer(t *testing.T) {
	_, rc := newCache(t)
	inner := new(mockFetcher)
	inner.On("Fetch", mock.Anything, query).Return(nil, nil).Once()

	c := offers.NewCachedClient(inner, rc, zerolog.Nop(), time.Minute)

	for i := 0; i < 2; i++ {
		offer, err := c.Fetch(context.Background(), query)
		require.NoError(t, err)
		assert.Nil(t, offer)
	}
	inner.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestCachedClient_ExpiredEntryRefetches(t *testing.T) {
	mr, rc := newCache(t)
	inner := new(mockFetcher)
	inner.On("Fetch", mock.Anything, query).Return(availableOffer(), nil).Twice()

	c := offers.NewCachedClient(inner, rc, zerolog.Nop(), time.Minute)

	_, err := c.Fetch(context.Background(), query)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = c.Fetch(context.Background(), query)
	require.NoError(t, err)

	inner.AssertExpectations(t)
}

func TestCachedClient_ErrorsAreNotCached(t *testing.T) {
	_, rc := newCache(t)
	inner := new(mockFetcher)
	inner.On("Fetch", mock.Anything, query).Return(nil, errors.New("timeout")).Once()
	inner.On("Fetch", mock.Anything, query).Return(availableOffer(), nil).Once()

	c := offers.NewCachedClient(inner, rc, zerolog.Nop(), time.Minute)

	_, err := c.Fetch(context.Background(), query)
	require.Error(t, err)

	offer, err := c.Fetch(context.Background(), query)
	require.NoError(t, err)
	assert.True(t, offer.HasTickets())
}
