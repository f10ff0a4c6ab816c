// Package observe provides OpenTelemetry metric instruments for the
// enrichment pipeline: LLM call and token counters, tool gate outcomes, and
// latency histograms. Construct with a real meter provider in production or
// with [NewNopMetrics] when TRACING_ENABLED is off; either way callers record
// unconditionally.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all pipeline metrics.
const meterName = "github.com/heartmarshall/vocab-enricher"

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// LLM round-trips and full enrichment requests.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45, 90,
}

// Metrics holds all OpenTelemetry metric instruments for the worker.
// All fields are safe for concurrent use.
type Metrics struct {
	// ToolDuration tracks one quality-gated tool execution, attempts
	// included. Attribute: tool.
	ToolDuration metric.Float64Histogram

	// RequestDuration tracks full request wall clock. Attribute: outcome.
	RequestDuration metric.Float64Histogram

	// LLMCalls counts gateway calls by provider, model, tier, and status.
	LLMCalls metric.Int64Counter

	// LLMTokens counts tokens by provider, model, and direction
	// (prompt or completion).
	LLMTokens metric.Int64Counter

	// ToolRuns counts finished tool gates by tool and outcome
	// (approved, failed).
	ToolRuns metric.Int64Counter

	// ToolRetries counts gate-ordered retries by tool.
	ToolRetries metric.Int64Counter

	// Requests counts finished requests by outcome
	// (completed, cache_hit, invalid, gate_failed, failed).
	Requests metric.Int64Counter

	// MediaReuse counts media lookups by result (hit, miss).
	MediaReuse metric.Int64Counter
}

// NewMetrics creates a fully initialised [Metrics] using the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ToolDuration, err = m.Float64Histogram("vocab.tool.duration",
		metric.WithDescription("Latency of one quality-gated tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RequestDuration, err = m.Float64Histogram("vocab.request.duration",
		metric.WithDescription("Wall clock of one enrichment request."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMCalls, err = m.Int64Counter("vocab.llm.calls",
		metric.WithDescription("Total LLM gateway calls by provider, model, tier, and status."),
	); err != nil {
		return nil, err
	}
	if met.LLMTokens, err = m.Int64Counter("vocab.llm.tokens",
		metric.WithDescription("Total tokens by provider, model, and direction."),
	); err != nil {
		return nil, err
	}
	if met.ToolRuns, err = m.Int64Counter("vocab.tool.runs",
		metric.WithDescription("Finished tool gates by tool and outcome."),
	); err != nil {
		return nil, err
	}
	if met.ToolRetries, err = m.Int64Counter("vocab.tool.retries",
		metric.WithDescription("Gate-ordered retries by tool."),
	); err != nil {
		return nil, err
	}
	if met.Requests, err = m.Int64Counter("vocab.requests",
		metric.WithDescription("Finished enrichment requests by outcome."),
	); err != nil {
		return nil, err
	}
	if met.MediaReuse, err = m.Int64Counter("vocab.media.reuse",
		metric.WithDescription("Media reuse lookups by result."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// NewNopMetrics returns a Metrics backed by the no-op provider. Recording is
// free; nothing is exported.
func NewNopMetrics() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: no-op metrics: " + err.Error())
	}
	return m
}

// RecordLLMUsage records one gateway call with its token counts. Satisfies
// the gateway's usage sink.
func (m *Metrics) RecordLLMUsage(ctx context.Context, provider, model, tier string, promptTokens, completionTokens int64) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("tier", tier),
		attribute.String("status", "ok"),
	)
	m.LLMCalls.Add(ctx, 1, attrs)
	m.LLMTokens.Add(ctx, promptTokens, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("direction", "prompt"),
	))
	m.LLMTokens.Add(ctx, completionTokens, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("direction", "completion"),
	))
}

// RecordLLMError counts a failed gateway call.
func (m *Metrics) RecordLLMError(ctx context.Context, provider, model, tier string) {
	m.LLMCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("tier", tier),
		attribute.String("status", "error"),
	))
}

// RecordToolRun counts a finished tool gate.
func (m *Metrics) RecordToolRun(ctx context.Context, tool, outcome string) {
	m.ToolRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", outcome),
	))
}

// RecordToolRetry counts one gate-ordered retry.
func (m *Metrics) RecordToolRetry(ctx context.Context, tool string) {
	m.ToolRetries.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}

// ObserveToolDuration records the wall clock of one tool execution.
func (m *Metrics) ObserveToolDuration(ctx context.Context, tool string, seconds float64) {
	m.ToolDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("tool", tool)))
}

// RecordRequest counts a finished request and its duration.
func (m *Metrics) RecordRequest(ctx context.Context, outcome string, seconds float64) {
	m.Requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.RequestDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordMediaReuse counts a media-reuse lookup result.
func (m *Metrics) RecordMediaReuse(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.MediaReuse.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
