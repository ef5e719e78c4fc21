// Package checker runs check cycles: it re-evaluates every due alert and emails
// the owner when tickets show up.
package checker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/metrics"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	TriggerHTTP = "http"
	TriggerCron = "cron"
)

type alertStore interface {
	List(ctx context.Context) ([]models.Alert, error)
	UpdateLastChecked(ctx context.Context, id string, at time.Time) error
	UpdateNotified(ctx context.Context, id string, notified bool) error
}

type evaluator interface {
	Evaluate(ctx context.Context, alert models.Alert) (bool, error)
}

type dispatcher interface {
	SendTicketsAvailable(ctx context.Context, alert models.Alert) error
}

type leaser interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

type Options struct {
	StalenessWindow time.Duration
	CallTimeout     time.Duration
	Concurrency     int
	Schedule        string
	// CycleTimeout bounds a whole cycle; zero means no bound.
	CycleTimeout time.Duration
	// RepeatNotifications re-sends on every due cycle while tickets stay on sale.
	RepeatNotifications bool
	// DeliveryConfirmations is set when the transport only queues mail. The notified
	// marker is then written by the delivery confirmation instead of the dispatch.
	DeliveryConfirmations bool
}

// Checker is the check cycle orchestrator.
type Checker struct {
	store      alertStore
	evaluator  evaluator
	dispatcher dispatcher
	lease      leaser
	opts       Options
	now        func() time.Time

	logger zerolog.Logger
	m      *metrics.Metrics
	cron   *cron.Cron
	cancel context.CancelFunc
}

func New(
	store alertStore,
	ev evaluator,
	disp dispatcher,
	lease leaser,
	opts Options,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Checker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Checker{
		store:      store,
		evaluator:  ev,
		dispatcher: disp,
		lease:      lease,
		opts:       opts,
		now:        time.Now,
		logger:     logger.With().Str("component", "Checker").Logger(),
		m:          m,
		cron:       cron.New(cron.WithSeconds()),
	}
}

// WithClock replaces the cycle clock.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

// IsDue reports whether the alert was last evaluated more than window ago.
func IsDue(alert models.Alert, now time.Time, window time.Duration) bool {
	return now.Sub(alert.LastChecked) > window
}

type outcome struct {
	notified bool
	failed   bool
}

// RunCycle evaluates every due alert once. Per-alert failures are logged and counted
// in the report; only failing to acquire the lease or to read the store aborts the cycle.
func (c *Checker) RunCycle(ctx context.Context, trigger string) (models.CheckReport, error) {
	start := time.Now()
	var report models.CheckReport

	release, ok, err := c.lease.Acquire(ctx)
	if err != nil {
		c.logger.Error().Err(err).Ctx(ctx).Str("trigger", trigger).Msg("failed to acquire cycle lease")
		c.m.TechnicalErrors.WithLabelValues("lease_error", "critical").Inc()
		c.m.ObserveCycle(trigger, "error", time.Since(start))
		return report, err
	}
	if !ok {
		c.logger.Info().Ctx(ctx).Str("trigger", trigger).Msg("check cycle already running, skipping")
		c.m.ObserveCycle(trigger, "skipped", time.Since(start))
		return report, models.ErrCycleInProgress
	}
	defer release()

	if c.opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CycleTimeout)
		defer cancel()
	}

	now := c.now()
	all, err := c.store.List(ctx)
	if err != nil {
		c.logger.Error().Err(err).Ctx(ctx).Str("trigger", trigger).Msg("failed to list alerts")
		c.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		c.m.ObserveCycle(trigger, "error", time.Since(start))
		return report, &models.PersistenceError{Op: "list alerts", Err: err}
	}

	due := make([]models.Alert, 0, len(all))
	for _, a := range all {
		if IsDue(a, now, c.opts.StalenessWindow) {
			due = append(due, a)
		}
	}
	report.Due = len(due)
	c.logger.Info().Ctx(ctx).
		Str("trigger", trigger).
		Int("alerts", len(all)).
		Int("due", len(due)).
		Msg("check cycle started")

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(c.opts.Concurrency)
	for _, a := range due {
		g.Go(func() error {
			out := c.checkOne(ctx, a, now)
			mu.Lock()
			defer mu.Unlock()
			report.Checked++
			if out.notified {
				report.Notified++
			}
			if out.failed {
				report.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	dur := time.Since(start)
	c.m.ObserveCycle(trigger, "ok", dur)
	c.logger.Info().Ctx(ctx).
		Str("trigger", trigger).
		Int("due", report.Due).
		Int("checked", report.Checked).
		Int("notified", report.Notified).
		Int("failed", report.Failed).
		Dur("duration", dur).
		Msg("check cycle completed")
	return report, nil
}

func (c *Checker) checkOne(ctx context.Context, a models.Alert, now time.Time) outcome {
	var out outcome
	log := c.logger.With().Str("alert_id", a.ID).Str("train", a.TrainNumber).Logger()

	available, err := c.evaluate(ctx, a)
	switch {
	case err != nil:
		out.failed = true
		err = &models.UpstreamError{Op: "evaluate offers", AlertID: a.ID, Err: err}
		log.Error().Err(err).Ctx(ctx).Msg("evaluation failed")
		c.m.AlertEvaluations.WithLabelValues("error").Inc()

	case available && a.Notified && !c.opts.RepeatNotifications:
		log.Debug().Ctx(ctx).Msg("tickets still available, owner already notified")
		c.m.AlertEvaluations.WithLabelValues("suppressed").Inc()

	case available:
		c.m.AlertEvaluations.WithLabelValues("available").Inc()
		if err := c.dispatch(ctx, a); err != nil {
			out.failed = true
			err = &models.UpstreamError{Op: "send notification", AlertID: a.ID, Err: err}
			log.Error().Err(err).Ctx(ctx).Str("email", a.Email).Msg("notification failed")
			c.m.NotificationsSent.WithLabelValues("failed").Inc()
			break
		}
		out.notified = true
		c.m.NotificationsSent.WithLabelValues("sent").Inc()
		log.Info().Ctx(ctx).Str("email", a.Email).Msg("tickets available, owner notified")
		if !a.Notified && !c.opts.DeliveryConfirmations {
			if !c.persist(ctx, log, "mark notified", func(ctx context.Context) error {
				return c.store.UpdateNotified(ctx, a.ID, true)
			}) {
				out.failed = true
			}
		}

	default:
		c.m.AlertEvaluations.WithLabelValues("unavailable").Inc()
		if a.Notified && !c.persist(ctx, log, "clear notified", func(ctx context.Context) error {
			return c.store.UpdateNotified(ctx, a.ID, false)
		}) {
			out.failed = true
		}
	}

	if !c.persist(ctx, log, "update last checked", func(ctx context.Context) error {
		return c.store.UpdateLastChecked(ctx, a.ID, now)
	}) {
		out.failed = true
	}
	return out
}

func (c *Checker) evaluate(ctx context.Context, a models.Alert) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	return c.evaluator.Evaluate(callCtx, a)
}

func (c *Checker) dispatch(ctx context.Context, a models.Alert) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	return c.dispatcher.SendTicketsAvailable(callCtx, a)
}

func (c *Checker) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.CallTimeout)
}

// persist runs a store write and reports success. An alert deleted mid-cycle is not a failure.
// Writes are detached from cycle cancellation so an attempted alert always records its check.
func (c *Checker) persist(
	ctx context.Context,
	log zerolog.Logger,
	op string,
	write func(ctx context.Context) error,
) bool {
	callCtx, cancel := c.callContext(context.WithoutCancel(ctx))
	err := write(callCtx)
	cancel()
	if err == nil {
		return true
	}
	if errors.Is(err, models.ErrAlertNotFound) {
		log.Warn().Ctx(ctx).Str("op", op).Msg("alert deleted during cycle")
		return true
	}
	err = &models.PersistenceError{Op: op, Err: err}
	log.Error().Err(err).Ctx(ctx).Msg("store write failed")
	c.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
	return false
}

// Start schedules cycles on the configured cron spec. An empty spec leaves cycles
// to the HTTP trigger only.
func (c *Checker) Start(ctx context.Context) error {
	if c.opts.Schedule == "" {
		c.logger.Info().Msg("no check schedule configured, cycles run on demand only")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if _, err := c.cron.AddFunc(c.opts.Schedule, func() { c.runScheduled(ctx) }); err != nil {
		cancel()
		c.logger.Error().Err(err).Str("schedule", c.opts.Schedule).Msg("failed to schedule check cycle")
		c.m.TechnicalErrors.WithLabelValues("cron_schedule_error", "critical").Inc()
		return err
	}

	c.cron.Start()
	c.logger.Info().Str("schedule", c.opts.Schedule).Msg("checker started")
	return nil
}

// Stop cancels the running cycle, if any, and waits for scheduled jobs to finish.
func (c *Checker) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	<-c.cron.Stop().Done()
	c.logger.Info().Msg("all scheduled cycles finished, checker stopped")
}

func (c *Checker) runScheduled(ctx context.Context) {
	_, err := c.RunCycle(ctx, TriggerCron)
	if err != nil && !errors.Is(err, models.ErrCycleInProgress) {
		c.logger.Error().Err(err).Msg("scheduled check cycle failed")
	}
}
