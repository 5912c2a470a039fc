// Package reminder scans scheduled appointments on a fixed cadence and
// fires the 24-hour and 1-hour reminders at most once per window. Window
// detection is marker-based: a reminder fires when the boundary has been
// crossed and the persisted marker is still unset, so a missed tick is
// caught up on the next one instead of silently skipped.
package reminder

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Issouf-Kindo/scheduler/internal/core"
	"github.com/Issouf-Kindo/scheduler/internal/metrics"
)

type Options struct {
	Interval   time.Duration // scan cadence; the hourly default matches the reminder band width
	BackoffMin time.Duration // first retry delay after a failed scan
	BackoffMax time.Duration
	Now        func() time.Time
}

type Engine struct {
	store    core.Store
	notifier core.Notifier
	log      *zap.Logger
	opt      Options
	now      func() time.Time
	running  atomic.Bool
}

func New(store core.Store, notifier core.Notifier, opt Options, log *zap.Logger) *Engine {
	if opt.Interval <= 0 {
		opt.Interval = time.Hour
	}
	if opt.BackoffMin <= 0 {
		opt.BackoffMin = time.Second
	}
	if opt.BackoffMax <= 0 {
		opt.BackoffMax = 2 * time.Minute
	}
	now := opt.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{store: store, notifier: notifier, log: log, opt: opt, now: now}
}

// Run blocks until ctx is done, executing one scan per tick. A failed scan
// is retried on an exponential backoff with jitter instead of waiting out a
// full interval; a tick that arrives while another scan is still in flight
// is skipped rather than overlapped.
func (e *Engine) Run(ctx context.Context) error {
	backoff := e.opt.BackoffMin
	for {
		wait := e.opt.Interval
		if err := e.tick(ctx); err != nil {
			wait = jitter(backoff, 0.20)
			backoff = minDur(e.opt.BackoffMax, time.Duration(float64(backoff)*1.6))
		} else {
			backoff = e.opt.BackoffMin
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (e *Engine) tick(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		metrics.CycleTotal.WithLabelValues("skipped_overlap").Inc()
		e.log.Warn("reminder scan still running, skipping tick")
		return nil
	}
	defer e.running.Store(false)

	if err := e.RunCycle(ctx); err != nil {
		e.log.Error("reminder scan failed", zap.Error(err))
		return err
	}
	return nil
}

// RunCycle performs a single scan. A failure to fetch the candidate list
// aborts the whole cycle; failures against individual appointments are
// logged and do not affect the rest of the batch.
func (e *Engine) RunCycle(ctx context.Context) error {
	appointments, err := e.store.ListScheduled(ctx)
	if err != nil {
		metrics.CycleTotal.WithLabelValues("fetch_error").Inc()
		return err
	}
	metrics.CycleCandidates.Observe(float64(len(appointments)))

	now := e.now()
	for _, a := range appointments {
		hoursUntil := a.AppointmentDate.Sub(now).Hours()

		// The 24h band stops above the 1h band so an appointment booked
		// inside its final hour gets a single reminder, not two.
		if hoursUntil > 1 && hoursUntil <= 24 && !a.ReminderSent(core.Window24h) {
			e.fire(ctx, a, core.Window24h, now)
		}
		if hoursUntil > 0 && hoursUntil <= 1 && !a.ReminderSent(core.Window1h) {
			e.fire(ctx, a, core.Window1h, now)
		}
	}

	metrics.CycleTotal.WithLabelValues("ok").Inc()
	return nil
}

func (e *Engine) fire(ctx context.Context, a *core.Appointment, w core.Window, now time.Time) {
	e.notifier.Reminder(ctx, a, w)

	// The marker is set even when every channel failed: at-most-once per
	// window wins over delivery guarantees, same as a missed cycle.
	if err := e.store.MarkReminderSent(ctx, a.ID, w, now); err != nil {
		e.log.Error("failed to persist reminder marker",
			zap.Int64("appointment_id", a.ID),
			zap.String("window", string(w)),
			zap.Error(err))
		return
	}
	metrics.RemindersFired.WithLabelValues(string(w)).Inc()
	e.log.Info("reminder fired",
		zap.Int64("appointment_id", a.ID),
		zap.String("window", string(w)))
}

func jitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	delta := int64(float64(d) * frac)
	if delta <= 0 {
		return d
	}
	// random in [-delta, +delta]
	n := rand.Int63n(2*delta+1) - delta
	return d + time.Duration(n)
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
