// Package metrics exports tracker state and call outcomes.
//
// Prometheus metrics (all prefixed "inflight_"):
//   - inflight_calls_in_flight - current tracked calls
//   - inflight_transitions_total{direction} - counter changes, "begin" or "end"
//   - inflight_calls_total{outcome} - settled calls by outcome kind
//   - inflight_call_duration_seconds - time from dispatch to settle
//   - inflight_calls_excluded_total - calls that matched an exclusion rule
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iliamunaev/inflight/internal/tracker"
)

// Prometheus is a tracker observer and an httpclient recorder.
type Prometheus struct {
	InFlight     prometheus.Gauge
	Transitions  *prometheus.CounterVec
	CallsTotal   *prometheus.CounterVec
	CallDuration prometheus.Histogram
	Excluded     prometheus.Counter
}

// NewPrometheus registers the metrics on reg.
// Registering twice on the same registry panics.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "inflight_calls_in_flight",
			Help: "Number of tracked outbound calls currently in flight",
		}),
		Transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inflight_transitions_total",
				Help: "Total counter transitions by direction",
			},
			[]string{"direction"}, // "begin" or "end"
		),
		CallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inflight_calls_total",
				Help: "Total settled tracked calls by outcome",
			},
			[]string{"outcome"},
		),
		CallDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "inflight_call_duration_seconds",
			Help:    "Duration of tracked calls from dispatch to settle",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		Excluded: f.NewCounter(prometheus.CounterOpts{
			Name: "inflight_calls_excluded_total",
			Help: "Total calls that matched an exclusion rule",
		}),
	}
}

// Notify implements tracker.Observer. The gauge moves by the delta so that
// out-of-order notifications from different goroutines still sum correctly.
func (p *Prometheus) Notify(s tracker.State) {
	p.InFlight.Add(float64(s.Delta))
	switch {
	case s.Delta > 0:
		p.Transitions.WithLabelValues("begin").Inc()
	case s.Delta < 0:
		p.Transitions.WithLabelValues("end").Inc()
	}
}

// CallFinished implements httpclient.Recorder.
func (p *Prometheus) CallFinished(outcome string, d time.Duration) {
	p.CallsTotal.WithLabelValues(outcome).Inc()
	p.CallDuration.Observe(d.Seconds())
}

// CallExcluded implements httpclient.Recorder.
func (p *Prometheus) CallExcluded() {
	p.Excluded.Inc()
}
