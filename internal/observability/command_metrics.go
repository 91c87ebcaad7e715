package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCommandsTotal    = "gitsleuth.commands.total"
	metricCommandDuration  = "gitsleuth.command.duration.seconds"
	metricCommandErrors    = "gitsleuth.command.errors.total"
	metricInflightCommands = "gitsleuth.inflight.commands"

	attrCommand = "command"
	attrStatus  = "status"

	// StatusOK and StatusError are the values reported for attrStatus.
	StatusOK    = "ok"
	StatusError = "error"
)

// CommandMetrics holds rate/error/duration instruments for CLI commands.
type CommandMetrics struct {
	commandsTotal   metric.Int64Counter
	commandDuration metric.Float64Histogram
	errorsTotal     metric.Int64Counter
	inflight        metric.Int64UpDownCounter
}

// NewCommandMetrics creates command metric instruments from the given meter.
func NewCommandMetrics(mt metric.Meter) (*CommandMetrics, error) {
	b := NewMetricBuilder(mt)

	cm := &CommandMetrics{
		commandsTotal:   b.Counter(metricCommandsTotal, "Completed command invocations", "{command}"),
		commandDuration: b.Histogram(metricCommandDuration, "Command duration in seconds", "s", durationBucketBoundaries...),
		errorsTotal:     b.Counter(metricCommandErrors, "Failed command invocations", "{error}"),
		inflight:        b.UpDownCounter(metricInflightCommands, "Commands currently executing", "{command}"),
	}

	if err := b.Err(); err != nil {
		return nil, err
	}

	return cm, nil
}

// RecordCommand records one completed command with its status and duration.
// Safe to call on a nil receiver (no-op).
func (cm *CommandMetrics) RecordCommand(ctx context.Context, command, status string, duration time.Duration) {
	if cm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrCommand, command),
		attribute.String(attrStatus, status),
	)

	cm.commandsTotal.Add(ctx, 1, attrs)
	cm.commandDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		cm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrCommand, command)))
	}
}

// TrackInflight bumps the in-flight gauge and returns the matching decrement.
func (cm *CommandMetrics) TrackInflight(ctx context.Context, command string) func() {
	if cm == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrCommand, command))
	cm.inflight.Add(ctx, 1, attrs)

	return func() {
		cm.inflight.Add(ctx, -1, attrs)
	}
}
