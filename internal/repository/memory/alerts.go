// Package memory is the transient alert store. State is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/rs/zerolog"
)

type AlertRepository struct {
	mu     sync.RWMutex
	order  []string
	alerts map[string]models.Alert
	log    zerolog.Logger
}

func NewAlertRepository(logger zerolog.Logger) *AlertRepository {
	return &AlertRepository{
		alerts: make(map[string]models.Alert),
		log:    logger.With().Str("component", "MemoryAlertRepository").Logger(),
	}
}

func (r *AlertRepository) Create(ctx context.Context, alert models.Alert) (models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[alert.ID]; !ok {
		r.order = append(r.order, alert.ID)
	}
	r.alerts[alert.ID] = alert

	r.log.Debug().Ctx(ctx).Str("alert_id", alert.ID).Msg("alert stored")
	return alert, nil
}

func (r *AlertRepository) List(_ context.Context) ([]models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Alert, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.alerts[id])
	}
	return out, nil
}

func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[id]; !ok {
		return models.ErrAlertNotFound
	}
	delete(r.alerts, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.log.Debug().Ctx(ctx).Str("alert_id", id).Msg("alert deleted")
	return nil
}

// UpdateLastChecked never moves lastChecked backwards.
func (r *AlertRepository) UpdateLastChecked(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return models.ErrAlertNotFound
	}
	if at.After(a.LastChecked) {
		a.LastChecked = at
		r.alerts[id] = a
	}
	return nil
}

func (r *AlertRepository) UpdateNotified(_ context.Context, id string, notified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return models.ErrAlertNotFound
	}
	a.Notified = notified
	r.alerts[id] = a
	return nil
}
