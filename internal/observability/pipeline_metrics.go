package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCommitsTotal     = "gitsleuth.pipeline.commits.total"
	metricFilesTotal       = "gitsleuth.pipeline.files.total"
	metricLinesTotal       = "gitsleuth.pipeline.lines.total"
	metricDiagnosticsTotal = "gitsleuth.pipeline.diagnostics.total"
	metricStageDuration    = "gitsleuth.pipeline.stage.duration.seconds"
	metricCacheHitRatio    = "gitsleuth.pipeline.cache.hit_ratio"

	attrReason = "reason"
	attrStage  = "stage"
	attrRunID  = "run_id"
)

// durationBucketBoundaries covers 10ms to 600s: single-commit toy repos
// answer in milliseconds, multi-decade monorepos take minutes.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// PipelineMetrics holds the OTel instruments for one attribution pipeline.
type PipelineMetrics struct {
	commitsTotal     metric.Int64Counter
	filesTotal       metric.Int64Counter
	linesTotal       metric.Int64Counter
	diagnosticsTotal metric.Int64Counter
	stageDuration    metric.Float64Histogram
	cacheHitRatio    metric.Float64Gauge
}

// RunStats aggregates what one completed run did, decoupled from the
// pipeline's own types.
type RunStats struct {
	RunID       string
	Commits     int64
	Files       int64
	Lines       int64
	Diagnostics map[string]int64
	Stages      map[string]time.Duration

	// CacheHitRatio is the blob cache hit fraction in [0, 1]. Negative
	// means no cache was attached.
	CacheHitRatio float64
}

// NewPipelineMetrics creates the pipeline instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	b := NewMetricBuilder(mt)

	pm := &PipelineMetrics{
		commitsTotal:     b.Counter(metricCommitsTotal, "Commits walked", "{commit}"),
		filesTotal:       b.Counter(metricFilesTotal, "Final-snapshot files attributed", "{file}"),
		linesTotal:       b.Counter(metricLinesTotal, "Final-snapshot lines attributed", "{line}"),
		diagnosticsTotal: b.Counter(metricDiagnosticsTotal, "Files skipped with a diagnostic, by reason", "{file}"),
		stageDuration:    b.Histogram(metricStageDuration, "Pipeline stage duration in seconds", "s", durationBucketBoundaries...),
		cacheHitRatio:    b.Gauge(metricCacheHitRatio, "Blob cache hit fraction of the last run", "1"),
	}

	if err := b.Err(); err != nil {
		return nil, err
	}

	return pm, nil
}

// RecordRun publishes the statistics of a completed run. Safe to call on a
// nil receiver.
func (pm *PipelineMetrics) RecordRun(ctx context.Context, stats RunStats) {
	if pm == nil {
		return
	}

	runAttrs := metric.WithAttributes(attribute.String(attrRunID, stats.RunID))

	pm.commitsTotal.Add(ctx, stats.Commits, runAttrs)
	pm.filesTotal.Add(ctx, stats.Files, runAttrs)
	pm.linesTotal.Add(ctx, stats.Lines, runAttrs)

	for reason, count := range stats.Diagnostics {
		pm.diagnosticsTotal.Add(ctx, count, metric.WithAttributes(
			attribute.String(attrRunID, stats.RunID),
			attribute.String(attrReason, reason),
		))
	}

	for stage, dur := range stats.Stages {
		pm.stageDuration.Record(ctx, dur.Seconds(), metric.WithAttributes(
			attribute.String(attrStage, stage),
		))
	}

	if stats.CacheHitRatio >= 0 {
		pm.cacheHitRatio.Record(ctx, stats.CacheHitRatio, runAttrs)
	}
}
