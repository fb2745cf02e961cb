package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records probe, bootstrap and guard measurements.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordProbe records one health probe and its latency.
	RecordProbe(ctx context.Context, url string, ok bool, latency time.Duration)

	// RecordAttempt records one bootstrap attempt for a feature.
	RecordAttempt(ctx context.Context, feature, outcome string, duration time.Duration)

	// RecordGuard records one guard decision. reason is empty when allowed.
	RecordGuard(ctx context.Context, allowed bool, reason string)
}

type metricsImpl struct {
	probeCount    metric.Int64Counter
	probeLatency  metric.Float64Histogram
	attemptCount  metric.Int64Counter
	attemptDur    metric.Float64Histogram
	guardDecision metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	probeCount, err := meter.Int64Counter(
		"health.probe.total",
		metric.WithDescription("Total number of health probes"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	probeLatency, err := meter.Float64Histogram(
		"health.probe.latency_ms",
		metric.WithDescription("Health probe latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	attemptCount, err := meter.Int64Counter(
		"bootstrap.attempt.total",
		metric.WithDescription("Total number of bootstrap attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	attemptDur, err := meter.Float64Histogram(
		"bootstrap.attempt.duration_ms",
		metric.WithDescription("Bootstrap attempt duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	guardDecision, err := meter.Int64Counter(
		"guard.decision.total",
		metric.WithDescription("Total number of request guard decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		probeCount:    probeCount,
		probeLatency:  probeLatency,
		attemptCount:  attemptCount,
		attemptDur:    attemptDur,
		guardDecision: guardDecision,
	}, nil
}

func (m *metricsImpl) RecordProbe(ctx context.Context, url string, ok bool, latency time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("probe.url", url),
		attribute.String("probe.outcome", outcomeLabel(ok)),
	)
	m.probeCount.Add(ctx, 1, opt)
	m.probeLatency.Record(ctx, float64(latency.Milliseconds()), opt)
}

func (m *metricsImpl) RecordAttempt(ctx context.Context, feature, outcome string, duration time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("bootstrap.feature", feature),
		attribute.String("bootstrap.outcome", outcome),
	)
	m.attemptCount.Add(ctx, 1, opt)
	m.attemptDur.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordGuard(ctx context.Context, allowed bool, reason string) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	attrs := []attribute.KeyValue{attribute.String("guard.decision", decision)}
	if reason != "" {
		attrs = append(attrs, attribute.String("guard.reason", reason))
	}
	m.guardDecision.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func outcomeLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

type noopMetrics struct{}

// NoopMetrics returns a Metrics that records nothing.
func NoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordProbe(context.Context, string, bool, time.Duration)     {}
func (noopMetrics) RecordAttempt(context.Context, string, string, time.Duration) {}
func (noopMetrics) RecordGuard(context.Context, bool, string)                    {}
