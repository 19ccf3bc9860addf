package telemetry

import (
	"context"
	"time"
)

// NoOpProvider is used when telemetry is disabled.
type NoOpProvider struct{}

// NewNoOp creates a new no-op telemetry provider
func NewNoOp() *NoOpProvider {
	return &NoOpProvider{}
}

func (n *NoOpProvider) StartSpan(ctx context.Context, _ string, _ ...SpanOption) (context.Context, Span) {
	return ctx, NoOpSpan{}
}

func (n *NoOpProvider) RecordFetch(context.Context, string, time.Duration) {}

func (n *NoOpProvider) RecordRefresh(context.Context, bool, time.Duration, int) {}

func (n *NoOpProvider) RecordEvaluation(context.Context, string, bool) {}

func (n *NoOpProvider) RecordCacheError(context.Context, string) {}

func (n *NoOpProvider) RecordConfigFetchTime(context.Context, time.Time) {}

func (n *NoOpProvider) Shutdown(context.Context) error { return nil }

// NoOpSpan is a span that does nothing
type NoOpSpan struct{}

func (NoOpSpan) End() {}

func (NoOpSpan) SetAttributes(...Attribute) {}

func (NoOpSpan) RecordError(error) {}

func (NoOpSpan) AddEvent(string, ...Attribute) {}
