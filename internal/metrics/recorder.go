package metrics

import (
	"context"
	"time"
)

// Recorder fans generation measurements out to every configured sink.
// A nil sink is skipped.
type Recorder struct {
	prom       *Collector
	sentry     *SentryMetrics
	cloudwatch *Client
}

// NewRecorder creates a recorder over the given sinks
func NewRecorder(prom *Collector, sentryMetrics *SentryMetrics, cloudwatch *Client) *Recorder {
	return &Recorder{
		prom:       prom,
		sentry:     sentryMetrics,
		cloudwatch: cloudwatch,
	}
}

// RecordGeneration records the outcome of one music request
func (r *Recorder) RecordGeneration(ctx context.Context, kind, backend string, duration time.Duration, success bool) {
	if r.prom != nil {
		r.prom.ObserveGeneration(kind, backend, duration, success)
	}
	if r.sentry != nil {
		r.sentry.RecordGenerationDuration(ctx, kind, backend, duration, success)
	}
	r.cloudwatch.RecordGeneration(kind, backend, duration, success)
}

// RecordProviderCall records one provider call
func (r *Recorder) RecordProviderCall(
	ctx context.Context,
	provider, model string,
	duration time.Duration,
	inputTokens, outputTokens int64,
	success bool,
) {
	if r.prom != nil {
		r.prom.ObserveProviderCall(provider, model, duration, inputTokens, outputTokens, success)
	}
	if !success {
		return
	}
	if r.sentry != nil {
		r.sentry.RecordTokenUsage(ctx, provider, model, inputTokens, outputTokens)
	}
	r.cloudwatch.RecordTokenUsage(provider, model, inputTokens, outputTokens)
}
