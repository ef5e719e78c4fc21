// Package redisstore keeps alerts in Redis hashes, one per alert, with a sorted
// index preserving creation order.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keyPrefix = "alert:"
	indexKey  = "alerts:index"
	seqKey    = "alerts:seq"

	timeLayout = "2006-01-02T15:04:05.000Z"
)

var updateLastChecked = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
local cur = redis.call('HGET', KEYS[1], 'lastChecked')
if (not cur) or ARGV[1] > cur then
	redis.call('HSET', KEYS[1], 'lastChecked', ARGV[1])
end
return 1
`)

var updateField = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

type AlertRepository struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewAlertRepository(rdb *redis.Client, logger zerolog.Logger) *AlertRepository {
	return &AlertRepository{
		rdb: rdb,
		log: logger.With().Str("component", "RedisAlertRepository").Logger(),
	}
}

func alertKey(id string) string { return keyPrefix + id }

func (r *AlertRepository) Create(ctx context.Context, a models.Alert) (models.Alert, error) {
	seq, err := r.rdb.Incr(ctx, seqKey).Result()
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Msg("failed to allocate alert sequence")
		return models.Alert{}, err
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, alertKey(a.ID), map[string]any{
			"id":          a.ID,
			"email":       a.Email,
			"trainNumber": a.TrainNumber,
			"from":        a.From,
			"to":          a.To,
			"date":        a.Date,
			"createdAt":   a.CreatedAt.UTC().Format(timeLayout),
			"lastChecked": a.LastChecked.UTC().Format(timeLayout),
			"notified":    strconv.FormatBool(a.Notified),
		})
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(seq), Member: a.ID})
		return nil
	})
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("alert_id", a.ID).Msg("failed to store alert")
		return models.Alert{}, err
	}

	r.log.Debug().Ctx(ctx).Str("alert_id", a.ID).Msg("alert stored")
	return a, nil
}

func (r *AlertRepository) List(ctx context.Context) ([]models.Alert, error) {
	ids, err := r.rdb.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, alertKey(id))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}

	alerts := make([]models.Alert, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			r.log.Warn().Ctx(ctx).Str("alert_id", ids[i]).Msg("index entry without alert hash")
			continue
		}
		a, err := decode(fields)
		if err != nil {
			return nil, fmt.Errorf("alert %s: %w", ids[i], err)
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, alertKey(id))
		pipe.ZRem(ctx, indexKey, id)
		return nil
	})
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("alert_id", id).Msg("failed to delete alert")
		return err
	}
	if del.Val() == 0 {
		return models.ErrAlertNotFound
	}
	return nil
}

// UpdateLastChecked never moves lastChecked backwards.
func (r *AlertRepository) UpdateLastChecked(ctx context.Context, id string, at time.Time) error {
	n, err := updateLastChecked.Run(ctx, r.rdb, []string{alertKey(id)}, at.UTC().Format(timeLayout)).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrAlertNotFound
	}
	return nil
}

func (r *AlertRepository) UpdateNotified(ctx context.Context, id string, notified bool) error {
	n, err := updateField.Run(ctx, r.rdb, []string{alertKey(id)}, "notified", strconv.FormatBool(notified)).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrAlertNotFound
	}
	return nil
}

func decode(f map[string]string) (models.Alert, error) {
	createdAt, err := time.Parse(timeLayout, f["createdAt"])
	if err != nil {
		return models.Alert{}, err
	}
	lastChecked, err := time.Parse(timeLayout, f["lastChecked"])
	if err != nil {
		return models.Alert{}, err
	}
	notified := false
	if v, ok := f["notified"]; ok {
		if notified, err = strconv.ParseBool(v); err != nil {
			return models.Alert{}, errors.Join(errors.New("bad notified flag"), err)
		}
	}

	return models.Alert{
		ID:          f["id"],
		Email:       f["email"],
		TrainNumber: f["trainNumber"],
		From:        f["from"],
		To:          f["to"],
		Date:        f["date"],
		CreatedAt:   createdAt,
		LastChecked: lastChecked,
		Notified:    notified,
	}, nil
}
