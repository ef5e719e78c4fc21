package cache

import (
	"context"
	"time"
)

type cache[T any] interface {
	Set(ctx context.Context, key string, value T, expiration time.Duration) error
	Get(ctx context.Context, key string, returnValue *T) error
}

type metricsCollector interface {
	ObserveLatency(operation string, duration time.Duration)
	IncrementCounter(operation string)
}

type MetricsDecorator[T any] struct {
	next      cache[T]
	collector metricsCollector
}

func NewMetricsDecorator[T any](next cache[T], collector metricsCollector) *MetricsDecorator[T] {
	return &MetricsDecorator[T]{next: next, collector: collector}
}

func (m *MetricsDecorator[T]) Set(
	ctx context.Context,
	key string,
	value T,
	expiration time.Duration,
) error {
	start := time.Now()
	err := m.next.Set(ctx, key, value, expiration)
	m.collector.ObserveLatency("cache_set", time.Since(start))
	if err != nil {
		m.collector.IncrementCounter("cache_set_errors")
	} else {
		m.collector.IncrementCounter("cache_set_success")
	}
	return err
}

func (m *MetricsDecorator[T]) Get(
	ctx context.Context,
	key string,
	returnValue *T,
) error {
	start := time.Now()
	err := m.next.Get(ctx, key, returnValue)
	m.collector.ObserveLatency("cache_get", time.Since(start))
	if err != nil {
		m.collector.IncrementCounter("cache_get_misses")
	} else {
		m.collector.IncrementCounter("cache_get_hits")
	}
	return err
}
