// Package telemetry exposes the tracing and metrics hooks used by the
// config service, the fetcher and the client.
package telemetry

import (
	"context"
	"time"
)

// Provider defines the interface for telemetry providers
type Provider interface {
	// Tracer operations
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)

	// Metrics operations
	RecordFetch(ctx context.Context, status string, duration time.Duration)
	RecordRefresh(ctx context.Context, success bool, duration time.Duration, flagCount int)
	RecordEvaluation(ctx context.Context, flagKey string, isDefault bool)
	RecordCacheError(ctx context.Context, op string)
	RecordConfigFetchTime(ctx context.Context, fetchTime time.Time)

	// Lifecycle
	Shutdown(ctx context.Context) error
}

// Span represents a trace span
type Span interface {
	End()
	SetAttributes(attrs ...Attribute)
	RecordError(err error)
	AddEvent(name string, attrs ...Attribute)
}

// SpanOption configures span creation
type SpanOption func(*SpanConfig)

// SpanConfig holds span configuration
type SpanConfig struct {
	Attributes []Attribute
}

// Attribute is a key-value pair attached to spans and events.
type Attribute struct {
	Key   string
	Value any
}

// WithAttributes adds attributes to a span
func WithAttributes(attrs ...Attribute) SpanOption {
	return func(c *SpanConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }

func Int(key string, value int) Attribute { return Attribute{Key: key, Value: value} }

func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }

func Float64(key string, value float64) Attribute { return Attribute{Key: key, Value: value} }

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// OrNoOp returns p, or a no-op provider when p is nil.
func OrNoOp(p Provider) Provider {
	if p == nil {
		return NewNoOp()
	}
	return p
}
