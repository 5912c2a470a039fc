package metrics

import (
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// API
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests."},
		[]string{"handler", "method", "code"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms..~10s
		},
		[]string{"handler", "method"},
	)
	BookingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bookings_total", Help: "Booking attempts."},
		[]string{"result"}, // created | validation_error | error
	)
	LifecycleTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "lifecycle_transitions_total", Help: "Token-gated lifecycle operations."},
		[]string{"op", "result"}, // cancel/reschedule x ok | guard | error
	)

	// Reminder engine
	CycleTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "reminder_cycle_total", Help: "Reminder scan cycles."},
		[]string{"result"}, // ok | fetch_error | skipped_overlap
	)
	CycleCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_cycle_candidates",
			Help:    "Scheduled appointments examined per cycle.",
			Buckets: prometheus.LinearBuckets(0, 25, 11), // 0,25,...,250
		},
	)
	RemindersFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "reminders_fired_total", Help: "Reminders fired by window."},
		[]string{"window"}, // 24h | 1h
	)

	// Notification channels
	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notify_dispatch_total", Help: "Notification dispatch outcomes."},
		[]string{"channel", "outcome"}, // email/sms x sent | error
	)
)

var registerOnce sync.Once

// Register default + our collectors. Safe to call from every Router build.
func MustRegister() {
	registerOnce.Do(register)
}

func register() {
	// Go and process collectors ship pre-registered on the default registry.
	prometheus.MustRegister(
		HTTPRequests, HTTPDuration, BookingsTotal, LifecycleTotal,
		CycleTotal, CycleCandidates, RemindersFired, DispatchTotal,
	)
}

// Export a tiny pgxpool stats exporter
type PGXPoolStats struct {
	pool *pgxpool.Pool

	conns          prometheus.Gauge
	idle           prometheus.Gauge
	acquireCount   prometheus.Counter
	acquireLatency prometheus.Counter
}

func NewPGXPoolStats(pool *pgxpool.Pool) *PGXPoolStats {
	m := &PGXPoolStats{
		pool: pool,
		conns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_conns", Help: "Total connections in pool.",
		}),
		idle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_idle_conns", Help: "Idle connections in pool.",
		}),
		acquireCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "db_pool_acquires_total", Help: "Total pool acquires.",
		}),
		acquireLatency: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "db_pool_acquire_seconds_total", Help: "Sum of acquire latencies.",
		}),
	}
	prometheus.MustRegister(m.conns, m.idle, m.acquireCount, m.acquireLatency)

	return m
}

func (m *PGXPoolStats) Start(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	for {
		select {
		case <-stop:
			t.Stop()
			return
		case <-t.C:
			s := m.pool.Stat()
			m.conns.Set(float64(s.TotalConns()))
			m.idle.Set(float64(s.IdleConns()))
			m.acquireCount.Add(float64(s.AcquireCount()))
			m.acquireLatency.Add(s.AcquireDuration().Seconds())
		}
	}
}
