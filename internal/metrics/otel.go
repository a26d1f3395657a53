package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/iliamunaev/inflight/internal/tracker"
)

const instrumentationName = "github.com/iliamunaev/inflight/internal/metrics"

// OTel mirrors the tracker counter into an OpenTelemetry UpDownCounter.
type OTel struct {
	active metric.Int64UpDownCounter
}

// NewOTel creates the instrument on mp, or on the global provider if mp is nil.
func NewOTel(mp metric.MeterProvider) (*OTel, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	active, err := mp.Meter(instrumentationName).Int64UpDownCounter(
		"inflight.calls.active",
		metric.WithDescription("Number of tracked outbound calls currently in flight"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create active calls counter: %w", err)
	}
	return &OTel{active: active}, nil
}

// Notify implements tracker.Observer.
func (o *OTel) Notify(s tracker.State) {
	o.active.Add(context.Background(), s.Delta)
}
