package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/OrlandoBitencourt/pennant"

// OTelProvider implements Provider using OpenTelemetry
type OTelProvider struct {
	tracer trace.Tracer
	meter  metric.Meter

	fetches         metric.Int64Counter
	fetchDuration   metric.Float64Histogram
	refreshSuccess  metric.Int64Counter
	refreshFailure  metric.Int64Counter
	refreshDuration metric.Float64Histogram
	evaluations     metric.Int64Counter
	cacheErrors     metric.Int64Counter
	configAge       metric.Float64ObservableGauge

	// unix millis of the last config snapshot, 0 until one is known
	fetchTimeMillis atomic.Int64
	now             func() time.Time
}

// NewOTel creates a provider on the global tracer and meter providers.
func NewOTel() (*OTelProvider, error) {
	return NewOTelWith(otel.GetTracerProvider(), otel.GetMeterProvider())
}

// NewOTelWith creates a provider on explicit tracer and meter providers.
func NewOTelWith(tp trace.TracerProvider, mp metric.MeterProvider) (*OTelProvider, error) {
	provider := &OTelProvider{
		tracer: tp.Tracer(instrumentationName),
		meter:  mp.Meter(instrumentationName),
		now:    time.Now,
	}

	if err := provider.initMetrics(); err != nil {
		return nil, err
	}

	return provider, nil
}

func (o *OTelProvider) initMetrics() error {
	var err error

	// Fetch metrics
	o.fetches, err = o.meter.Int64Counter(
		"pennant.fetch",
		metric.WithDescription("Number of config fetches by outcome"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	o.fetchDuration, err = o.meter.Float64Histogram(
		"pennant.fetch.duration",
		metric.WithDescription("Duration of config fetches"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	// Refresh metrics
	o.refreshSuccess, err = o.meter.Int64Counter(
		"pennant.refresh.success",
		metric.WithDescription("Number of successful refreshes"),
	)
	if err != nil {
		return err
	}

	o.refreshFailure, err = o.meter.Int64Counter(
		"pennant.refresh.failure",
		metric.WithDescription("Number of failed refreshes"),
	)
	if err != nil {
		return err
	}

	o.refreshDuration, err = o.meter.Float64Histogram(
		"pennant.refresh.duration",
		metric.WithDescription("Duration of refresh operations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	o.evaluations, err = o.meter.Int64Counter(
		"pennant.evaluations",
		metric.WithDescription("Number of flag evaluations"),
	)
	if err != nil {
		return err
	}

	o.cacheErrors, err = o.meter.Int64Counter(
		"pennant.cache.errors",
		metric.WithDescription("Number of external cache read or write failures"),
	)
	if err != nil {
		return err
	}

	o.configAge, err = o.meter.Float64ObservableGauge(
		"pennant.config.age",
		metric.WithDescription("Age of the cached config snapshot"),
		metric.WithUnit("s"),
		metric.WithFloat64Callback(func(_ context.Context, observer metric.Float64Observer) error {
			if age, ok := o.configAgeSeconds(); ok {
				observer.Observe(age)
			}
			return nil
		}),
	)
	return err
}

func (o *OTelProvider) configAgeSeconds() (float64, bool) {
	ms := o.fetchTimeMillis.Load()
	if ms == 0 {
		return 0, false
	}
	return o.now().Sub(time.UnixMilli(ms)).Seconds(), true
}

func (o *OTelProvider) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span) {
	config := &SpanConfig{}
	for _, opt := range opts {
		opt(config)
	}

	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(convertAttributes(config.Attributes)...))
	return ctx, &OTelSpan{span: span}
}

func convertAttribute(attr Attribute) attribute.KeyValue {
	switch v := attr.Value.(type) {
	case string:
		return attribute.String(attr.Key, v)
	case int:
		return attribute.Int(attr.Key, v)
	case int64:
		return attribute.Int64(attr.Key, v)
	case bool:
		return attribute.Bool(attr.Key, v)
	case float64:
		return attribute.Float64(attr.Key, v)
	default:
		return attribute.String(attr.Key, "")
	}
}

func convertAttributes(attrs []Attribute) []attribute.KeyValue {
	out := make([]attribute.KeyValue, len(attrs))
	for i, attr := range attrs {
		out[i] = convertAttribute(attr)
	}
	return out
}

// RecordFetch counts one fetch with its outcome ("fetched", "not_modified"
// or a refresh error code).
func (o *OTelProvider) RecordFetch(ctx context.Context, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	o.fetches.Add(ctx, 1, attrs)
	o.fetchDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *OTelProvider) RecordRefresh(ctx context.Context, success bool, duration time.Duration, flagCount int) {
	o.refreshDuration.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(attribute.Bool("success", success)))

	if success {
		o.refreshSuccess.Add(ctx, 1, metric.WithAttributes(
			attribute.Int("flag.count", flagCount),
		))
	} else {
		o.refreshFailure.Add(ctx, 1)
	}
}

func (o *OTelProvider) RecordEvaluation(ctx context.Context, flagKey string, isDefault bool) {
	o.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flag.key", flagKey),
		attribute.Bool("default", isDefault),
	))
}

func (o *OTelProvider) RecordCacheError(ctx context.Context, op string) {
	o.cacheErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// RecordConfigFetchTime feeds the pennant.config.age gauge. A zero time is
// ignored.
func (o *OTelProvider) RecordConfigFetchTime(_ context.Context, fetchTime time.Time) {
	if fetchTime.IsZero() {
		return
	}
	o.fetchTimeMillis.Store(fetchTime.UnixMilli())
}

// Shutdown is a no-op; the SDK providers are owned by the caller.
func (o *OTelProvider) Shutdown(context.Context) error {
	return nil
}

// OTelSpan wraps an OpenTelemetry span
type OTelSpan struct {
	span trace.Span
}

func (s *OTelSpan) End() {
	s.span.End()
}

func (s *OTelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(convertAttributes(attrs)...)
}

func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
}

func (s *OTelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(convertAttributes(attrs)...))
}
