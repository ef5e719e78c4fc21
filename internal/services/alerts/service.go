package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/services/availability"
	"github.com/google/uuid"
)

// AlertStore is implemented by every alert store adapter.
type AlertStore interface {
	Create(ctx context.Context, alert models.Alert) (models.Alert, error)
	List(ctx context.Context) ([]models.Alert, error)
	Delete(ctx context.Context, id string) error
	UpdateLastChecked(ctx context.Context, id string, at time.Time) error
	UpdateNotified(ctx context.Context, id string, notified bool) error
}

type Service struct {
	store AlertStore
	loc   *time.Location
	now   func() time.Time
}

func NewService(store AlertStore, loc *time.Location) *Service {
	return &Service{
		store: store,
		loc:   loc,
		now:   time.Now,
	}
}

// WithClock replaces the creation clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates the travel date and stores a new alert with lastChecked equal to createdAt.
func (s *Service) Create(ctx context.Context, in models.AlertInput) (models.Alert, error) {
	if _, err := availability.ParseTravelDate(in.Date, s.loc); err != nil {
		return models.Alert{}, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	alert := models.Alert{
		ID:          uuid.NewString(),
		Email:       in.Email,
		TrainNumber: in.TrainNumber,
		From:        in.From,
		To:          in.To,
		Date:        in.Date,
		CreatedAt:   now,
		LastChecked: now,
	}

	created, err := s.store.Create(ctx, alert)
	if err != nil {
		return models.Alert{}, &models.PersistenceError{Op: "create alert", Err: err}
	}
	return created, nil
}

func (s *Service) List(ctx context.Context) ([]models.Alert, error) {
	alerts, err := s.store.List(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list alerts", Err: err}
	}
	return alerts, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	if err == nil || errors.Is(err, models.ErrAlertNotFound) {
		return err
	}
	return &models.PersistenceError{Op: "delete alert", Err: err}
}
