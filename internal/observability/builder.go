package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// MetricBuilder accumulates OTel instrument creation errors, enabling batch
// construction with a single error check at the end.
type MetricBuilder struct {
	meter metric.Meter
	err   error
}

// NewMetricBuilder creates a builder for the given meter.
func NewMetricBuilder(mt metric.Meter) *MetricBuilder {
	return &MetricBuilder{meter: mt}
}

// Counter creates an Int64Counter instrument.
func (b *MetricBuilder) Counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

// Histogram creates a Float64Histogram with optional explicit bucket bounds.
func (b *MetricBuilder) Histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	}

	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	h, err := b.meter.Float64Histogram(name, opts...)
	b.setErr(name, err)

	return h
}

// UpDownCounter creates an Int64UpDownCounter instrument.
func (b *MetricBuilder) UpDownCounter(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

// Gauge creates a synchronous Float64Gauge instrument.
func (b *MetricBuilder) Gauge(name, desc, unit string) metric.Float64Gauge {
	g, err := b.meter.Float64Gauge(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return g
}

// ObservableGauge creates an Int64ObservableGauge instrument.
func (b *MetricBuilder) ObservableGauge(name, desc, unit string) metric.Int64ObservableGauge {
	g, err := b.meter.Int64ObservableGauge(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return g
}

// ObservableCounter creates an Int64ObservableCounter instrument.
func (b *MetricBuilder) ObservableCounter(name, desc, unit string) metric.Int64ObservableCounter {
	c, err := b.meter.Int64ObservableCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

// Err returns the first instrument creation error, or nil.
func (b *MetricBuilder) Err() error {
	return b.err
}

// setErr records the first instrument creation error.
func (b *MetricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}
