package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/octopus/bulletin-digest/internal/domain"
	"github.com/octopus/bulletin-digest/internal/service"
)

// Metrics groups all Prometheus instruments for bulletin runs.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	Runs          *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Errors        *prometheus.CounterVec
	EmailsSent    prometheus.Counter
	RunDuration   prometheus.Histogram
	LastRun       prometheus.Gauge
}

// New registers all instruments with the given registerer.
// A custom registry keeps tests isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bulletin_runs_total",
			Help: "Bulletin runs by result (ok, errors, busy).",
		}, []string{"result"}),

		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bulletin_notifications_total",
			Help: "Bulletin notifications resolved per outcome.",
		}, []string{"outcome"}),

		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bulletin_errors_total",
			Help: "Errors reported by bulletin runs, by kind.",
		}, []string{"kind"}),

		EmailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bulletin_emails_sent_total",
			Help: "Digest emails accepted by the mail transport.",
		}),

		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bulletin_run_duration_seconds",
			Help:    "Wall time of a full bulletin run including reconciliation.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),

		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bulletin_last_run_timestamp_seconds",
			Help: "Unix time the last bulletin run finished.",
		}),
	}

	reg.MustRegister(
		m.Runs,
		m.Notifications,
		m.Errors,
		m.EmailsSent,
		m.RunDuration,
		m.LastRun,
	)

	return m
}

// Observe records one finished run.
func (m *Metrics) Observe(res service.Result, finishedAt time.Time) {
	result := "ok"
	switch {
	case res.Busy():
		result = "busy"
	case len(res.Errors) > 0:
		result = "errors"
	}
	m.Runs.WithLabelValues(result).Inc()

	m.Notifications.WithLabelValues("sent").Add(float64(res.TotalSent))
	m.Notifications.WithLabelValues("failed").Add(float64(res.TotalFailed))
	m.Notifications.WithLabelValues("skipped").Add(float64(res.TotalSkipped))
	m.Notifications.WithLabelValues("discarded").Add(float64(res.TotalDiscarded))

	for _, err := range res.Errors {
		kind := domain.KindOf(err)
		if kind == "" {
			kind = "other"
		}
		m.Errors.WithLabelValues(string(kind)).Inc()
	}

	m.EmailsSent.Add(float64(res.EmailsSent))
	m.RunDuration.Observe(res.Duration.Seconds())
	m.LastRun.Set(float64(finishedAt.Unix()))
}

// RunHook returns the callback expected by service.WithRunHook.
// Keeps prometheus out of the service package.
func (m *Metrics) RunHook() func(service.Result) {
	return func(res service.Result) {
		m.Observe(res, time.Now())
	}
}
