// Package sqlite is the durable alert store backed by an SQL database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/metrics"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/Nazarious-ucu/nightjet-alerts/migrations"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

const migrationDialect = "sqlite3"

// Fixed width keeps lexical and chronological order identical, so MAX() works on the column.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Migrate applies the embedded schema migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(migrationDialect); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

// AlertRepository persists alerts with structured logging and metrics.
type AlertRepository struct {
	DB  *sql.DB
	log zerolog.Logger
	m   *metrics.Metrics
}

func NewAlertRepository(db *sql.DB, logger zerolog.Logger, m *metrics.Metrics) *AlertRepository {
	logger = logger.With().Str("component", "AlertRepository").Logger()
	return &AlertRepository{DB: db, log: logger, m: m}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func (r *AlertRepository) Create(ctx context.Context, a models.Alert) (models.Alert, error) {
	start := time.Now()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO alerts
		    (id, email, train_number, from_station, to_station, travel_date, created_at, last_checked, notified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.TrainNumber, a.From, a.To, a.Date,
		formatTime(a.CreatedAt), formatTime(a.LastChecked), a.Notified,
	)
	dur := time.Since(start)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).
			Str("alert_id", a.ID).
			Dur("duration", dur).
			Msg("failed to insert alert")
		r.m.TechnicalErrors.WithLabelValues("db_insert_error", "critical").Inc()
		return models.Alert{}, err
	}

	r.log.Info().Ctx(ctx).
		Str("alert_id", a.ID).
		Str("train", a.TrainNumber).
		Dur("duration", dur).
		Msg("alert created")
	return a, nil
}

func (r *AlertRepository) List(ctx context.Context) ([]models.Alert, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, email, train_number, from_station, to_station, travel_date, created_at, last_checked, notified
		FROM alerts
		ORDER BY rowid
	`)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Msg("failed to query alerts")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return nil, err
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Warn().Err(err).Msg("failed to close rows")
		}
	}(rows)

	alerts := make([]models.Alert, 0)
	for rows.Next() {
		var (
			a                    models.Alert
			createdAt, lastCheck string
		)
		if err := rows.Scan(&a.ID, &a.Email, &a.TrainNumber, &a.From, &a.To, &a.Date,
			&createdAt, &lastCheck, &a.Notified); err != nil {
			r.m.TechnicalErrors.WithLabelValues("db_scan_error", "critical").Inc()
			return nil, err
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("alert %s created_at: %w", a.ID, err)
		}
		if a.LastChecked, err = parseTime(lastCheck); err != nil {
			return nil, fmt.Errorf("alert %s last_checked: %w", a.ID, err)
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("alert_id", id).Msg("failed to delete alert")
		r.m.TechnicalErrors.WithLabelValues("db_delete_error", "critical").Inc()
		return err
	}
	return r.affected(ctx, res, id)
}

// UpdateLastChecked never moves last_checked backwards.
func (r *AlertRepository) UpdateLastChecked(ctx context.Context, id string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE alerts SET last_checked = MAX(last_checked, ?) WHERE id = ?`,
		formatTime(at), id,
	)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("alert_id", id).Msg("failed to update last_checked")
		r.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
		return err
	}
	return r.affected(ctx, res, id)
}

func (r *AlertRepository) UpdateNotified(ctx context.Context, id string, notified bool) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE alerts SET notified = ? WHERE id = ?`, notified, id,
	)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("alert_id", id).Msg("failed to update notified")
		r.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
		return err
	}
	return r.affected(ctx, res, id)
}

func (r *AlertRepository) affected(ctx context.Context, res sql.Result, id string) error {
	count, err := res.RowsAffected()
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).
			Str("alert_id", id).
			Msg("failed to get rows affected")
		r.m.TechnicalErrors.WithLabelValues("db_rows_error", "critical").Inc()
		return err
	}
	if count == 0 {
		return models.ErrAlertNotFound
	}
	return nil
}
