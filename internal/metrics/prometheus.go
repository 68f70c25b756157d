package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records pipeline metrics in Prometheus.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	sourceFetches *prometheus.CounterVec
	cycles        *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	retries       *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a recorder registered on reg
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		sourceFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_source_fetch_total",
				Help: "Source fetches by outcome",
			},
			[]string{"source", "outcome"},
		),
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_cycles_total",
				Help: "Finished cycles by kind and status",
			},
			[]string{"kind", "status"},
		),
		deliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_deliveries_total",
				Help: "Notification deliveries by channel and status",
			},
			[]string{"channel", "status"},
		),
		retries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_delivery_retries_total",
				Help: "Delivery retries after transient failures",
			},
			[]string{"channel"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketpulse_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
}

// RecordSourceFetch records one source fetch outcome (ok or error)
func (r *Recorder) RecordSourceFetch(source, outcome string) {
	if r == nil {
		return
	}
	r.sourceFetches.WithLabelValues(source, outcome).Inc()
}

// RecordCycle records a finished cycle
func (r *Recorder) RecordCycle(kind, status string) {
	if r == nil {
		return
	}
	r.cycles.WithLabelValues(kind, status).Inc()
}

// RecordDelivery records a terminal delivery outcome
func (r *Recorder) RecordDelivery(channel, status string) {
	if r == nil {
		return
	}
	r.deliveries.WithLabelValues(channel, status).Inc()
}

// RecordRetry records a retry on a channel
func (r *Recorder) RecordRetry(channel string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(channel).Inc()
}

// RecordError records an error occurrence
func (r *Recorder) RecordError(kind string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records stage latency since start
func (r *Recorder) RecordLatency(stage string, start time.Time) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
