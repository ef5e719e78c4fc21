// Package availability decides whether tickets for an alert's train are on sale.
package availability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/rs/zerolog"
)

const dateLen = 8

type offerClient interface {
	Fetch(ctx context.Context, q models.OfferQuery) (*models.Offer, error)
}

// ParseTravelDate reads a DDMMYYYY date as midnight in loc. Dates that do not
// exist on the calendar (31022024) are rejected.
func ParseTravelDate(date string, loc *time.Location) (time.Time, error) {
	if len(date) != dateLen {
		return time.Time{}, fmt.Errorf("%w: %q", models.ErrInvalidAlertDate, date)
	}
	day, errD := strconv.Atoi(date[0:2])
	month, errM := strconv.Atoi(date[2:4])
	year, errY := strconv.Atoi(date[4:8])
	if errD != nil || errM != nil || errY != nil {
		return time.Time{}, fmt.Errorf("%w: %q", models.ErrInvalidAlertDate, date)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, fmt.Errorf("%w: %q", models.ErrInvalidAlertDate, date)
	}
	return t, nil
}

type Evaluator struct {
	client offerClient
	loc    *time.Location
	logger zerolog.Logger
}

func NewEvaluator(client offerClient, loc *time.Location, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		client: client,
		loc:    loc,
		logger: logger.With().Str("component", "Evaluator").Logger(),
	}
}

// Evaluate reports whether at least one ticket class is offered for the alert's connection.
func (e *Evaluator) Evaluate(ctx context.Context, alert models.Alert) (bool, error) {
	day, err := ParseTravelDate(alert.Date, e.loc)
	if err != nil {
		return false, err
	}

	offer, err := e.client.Fetch(ctx, models.OfferQuery{
		TrainNumber:     alert.TrainNumber,
		From:            alert.From,
		To:              alert.To,
		DepartureMillis: day.UnixMilli(),
	})
	if err != nil {
		return false, err
	}

	available := offer.HasTickets()
	e.logger.Debug().Ctx(ctx).
		Str("alert_id", alert.ID).
		Str("train", alert.TrainNumber).
		Bool("offer", offer != nil).
		Bool("available", available).
		Msg("alert evaluated")
	return available, nil
}
