package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MirrorMetrics counts legacy-store mirror writes. Mirror failures never fail
// the primary write, so this counter is the only place drift becomes visible.
type MirrorMetrics struct {
	success *prometheus.CounterVec
	failure *prometheus.CounterVec
}

// NewMirrorMetrics registers the mirror counters on the provided registerer.
func NewMirrorMetrics(reg prometheus.Registerer) *MirrorMetrics {
	if reg == nil {
		return &MirrorMetrics{}
	}
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_write_success_total",
		Help: "Successful legacy-store mirror writes.",
	}, []string{"collection"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_write_failure_total",
		Help: "Failed legacy-store mirror writes (primary write unaffected).",
	}, []string{"collection"})
	reg.MustRegister(success, failure)
	return &MirrorMetrics{success: success, failure: failure}
}

// IncSuccess increments the success counter for the named collection.
func (m *MirrorMetrics) IncSuccess(collection string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(collection)).Inc()
}

// IncFailure increments the failure counter for the named collection.
func (m *MirrorMetrics) IncFailure(collection string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(collection)).Inc()
}

// PollMetrics records telemetry poll cycle outcomes.
type PollMetrics struct {
	duration *prometheus.HistogramVec
	fetches  *prometheus.CounterVec
}

// NewPollMetrics registers the telemetry poll metrics on the provided registerer.
func NewPollMetrics(reg prometheus.Registerer) *PollMetrics {
	if reg == nil {
		return &PollMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "telemetry_poll_duration_seconds",
		Help:    "Duration of telemetry poll cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_fetch_total",
		Help: "Telemetry gateway fetches by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, fetches)
	return &PollMetrics{duration: duration, fetches: fetches}
}

// ObserveCycle records the duration of a full poll cycle.
func (p *PollMetrics) ObserveCycle(outcome string, d time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(outcome)).Observe(d.Seconds())
}

// IncFetch counts a single device fetch by outcome.
func (p *PollMetrics) IncFetch(outcome string) {
	if p == nil || p.fetches == nil {
		return
	}
	p.fetches.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
