package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/iliamunaev/inflight/internal/tracker"
)

func TestPrometheusFollowsTracker(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	tr := tracker.New(tracker.WithExcludedPaths("skip"))
	tr.Subscribe(p)

	a := tr.Begin("a")
	tr.Begin("b")
	tr.Begin("skip")
	assert.Equal(t, 2.0, testutil.ToFloat64(p.InFlight))

	a.End()
	assert.Equal(t, 1.0, testutil.ToFloat64(p.InFlight))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.Transitions.WithLabelValues("begin")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Transitions.WithLabelValues("end")))
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.CallFinished("ok", 20*time.Millisecond)
	p.CallFinished("ok", 30*time.Millisecond)
	p.CallFinished("timeout", time.Second)
	p.CallExcluded()

	assert.Equal(t, 2.0, testutil.ToFloat64(p.CallsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.CallsTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Excluded))

	n, err := testutil.GatherAndCount(reg, "inflight_call_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPrometheusDoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheus(reg)
	assert.Panics(t, func() { NewPrometheus(reg) })
}

func TestOTelFollowsTracker(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	o, err := NewOTel(mp)
	require.NoError(t, err)

	tr := tracker.New()
	tr.Subscribe(o)
	tr.Begin("a")
	tr.Begin("b").End()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "inflight.calls.active" {
				continue
			}
			found = true
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "expected Sum[int64], got %T", m.Data)
			assert.False(t, sum.IsMonotonic)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			assert.Equal(t, int64(1), total)
		}
	}
	assert.True(t, found, "inflight.calls.active not collected")
}

func TestNewOTelGlobalProvider(t *testing.T) {
	o, err := NewOTel(nil)
	require.NoError(t, err)
	o.Notify(tracker.State{CallingCount: 1, Delta: 1})
}
