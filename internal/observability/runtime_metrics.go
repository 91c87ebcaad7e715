package observability

import (
	"context"
	"fmt"
	"math"
	runtimemetrics "runtime/metrics"

	"go.opentelemetry.io/otel/metric"
)

const (
	metricGoroutines = "gitsleuth.runtime.goroutines"
	metricHeapBytes  = "gitsleuth.runtime.heap.bytes"
	metricAllocBytes = "gitsleuth.runtime.allocs.bytes"

	sampleGoroutines = "/sched/goroutines:goroutines"
	sampleHeapBytes  = "/memory/classes/heap/objects:bytes"
	sampleAllocBytes = "/gc/heap/allocs:bytes"
)

// RuntimeMetrics exposes Go runtime gauges as OTel instruments, read from
// runtime/metrics on each collection cycle.
type RuntimeMetrics struct {
	goroutines metric.Int64ObservableGauge
	heapBytes  metric.Int64ObservableGauge
	allocBytes metric.Int64ObservableCounter
}

// NewRuntimeMetrics registers runtime instruments on the meter. The meter's
// reader invokes the callback; no manual polling is needed.
func NewRuntimeMetrics(mt metric.Meter) (*RuntimeMetrics, error) {
	b := NewMetricBuilder(mt)

	rm := &RuntimeMetrics{
		goroutines: b.ObservableGauge(metricGoroutines, "Current number of live goroutines", "{goroutine}"),
		heapBytes:  b.ObservableGauge(metricHeapBytes, "Bytes of live heap objects", "By"),
		allocBytes: b.ObservableCounter(metricAllocBytes, "Cumulative heap bytes allocated", "By"),
	}

	if err := b.Err(); err != nil {
		return nil, err
	}

	_, err := mt.RegisterCallback(rm.observe, rm.goroutines, rm.heapBytes, rm.allocBytes)
	if err != nil {
		return nil, fmt.Errorf("register runtime metrics callback: %w", err)
	}

	return rm, nil
}

// observe reads runtime/metrics samples and reports them to the observer.
func (rm *RuntimeMetrics) observe(_ context.Context, obs metric.Observer) error {
	samples := []runtimemetrics.Sample{
		{Name: sampleGoroutines},
		{Name: sampleHeapBytes},
		{Name: sampleAllocBytes},
	}

	runtimemetrics.Read(samples)

	for idx := range samples {
		val, ok := sampleInt64Value(samples[idx].Value)
		if !ok {
			continue
		}

		switch samples[idx].Name {
		case sampleGoroutines:
			obs.ObserveInt64(rm.goroutines, val)
		case sampleHeapBytes:
			obs.ObserveInt64(rm.heapBytes, val)
		case sampleAllocBytes:
			obs.ObserveInt64(rm.allocBytes, val)
		}
	}

	return nil
}

// sampleInt64Value extracts an int64 from a runtime/metrics value, handling
// both Uint64 and Float64 kinds.
func sampleInt64Value(val runtimemetrics.Value) (int64, bool) {
	switch val.Kind() {
	case runtimemetrics.KindUint64:
		u := val.Uint64()
		if u > uint64(math.MaxInt64) {
			return math.MaxInt64, true
		}

		return int64(u), true
	case runtimemetrics.KindFloat64:
		return int64(val.Float64()), true
	default:
		return 0, false
	}
}
