// Package tracking records OpenTelemetry spans and metrics for fetches.
package tracking

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/gaborage/go-apifetch/fetch"

	metricAttempts = "apifetch.client.attempts"
	metricRetries  = "apifetch.client.retries"
	metricDuration = "apifetch.client.duration"

	attrEndpoint   = "apifetch.endpoint"
	attrMethod     = "http.request.method"
	attrStatusCode = "http.response.status_code"
	attrOutcome    = "apifetch.outcome"
	attrAttempt    = "apifetch.attempt"
	attrErrorType  = "error.type"

	// SpanName is the name of the span wrapping one fetch.
	SpanName = "apifetch.fetch"
	// EventAttempt is recorded on the span once per transport call.
	EventAttempt = "apifetch.attempt"
	// EventRetry is recorded on the span when a retry is scheduled.
	EventRetry = "apifetch.retry"
)

// Outcome values for attempt and fetch metrics.
const (
	OutcomeOK             = "ok"
	OutcomeErrorResponse  = "error_response"
	OutcomeInvalid        = "invalid"
	OutcomeTransportError = "transport_error"
	OutcomeAborted        = "aborted"
)

// Recorder owns the instruments of one fetcher.
type Recorder struct {
	tracer   oteltrace.Tracer
	attempts metric.Int64Counter
	retries  metric.Int64Counter
	duration metric.Float64Histogram
}

// logMetricError logs an instrument initialization error to stderr.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize fetch metric %s: %v\n", metricName, err)
	}
}

// New creates a Recorder from the given providers.
func New(mp metric.MeterProvider, tp oteltrace.TracerProvider) *Recorder {
	meter := mp.Meter(instrumentationName)
	r := &Recorder{tracer: tp.Tracer(instrumentationName)}

	var err error
	r.attempts, err = meter.Int64Counter(
		metricAttempts,
		metric.WithDescription("Number of transport calls made by fetches"),
		metric.WithUnit("{attempt}"),
	)
	logMetricError(metricAttempts, err)

	r.retries, err = meter.Int64Counter(
		metricRetries,
		metric.WithDescription("Number of retries scheduled by retry evaluators"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(metricRetries, err)

	r.duration, err = meter.Float64Histogram(
		metricDuration,
		metric.WithDescription("Duration of whole fetches including retry delays"),
		metric.WithUnit("s"),
	)
	logMetricError(metricDuration, err)

	return r
}

// Start opens the fetch span.
func (r *Recorder) Start(ctx context.Context, endpoint, method string) (context.Context, oteltrace.Span) {
	return r.tracer.Start(ctx, SpanName,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			attribute.String(attrEndpoint, endpoint),
			attribute.String(attrMethod, method),
		),
	)
}

// Attempt records one transport call. status is ignored when err is set.
func (r *Recorder) Attempt(ctx context.Context, endpoint, method string, attempt, status int, err error) {
	outcome := OutcomeOK
	attrs := []attribute.KeyValue{
		attribute.String(attrEndpoint, endpoint),
		attribute.String(attrMethod, method),
	}
	eventAttrs := []attribute.KeyValue{attribute.Int(attrAttempt, attempt)}

	switch {
	case err != nil:
		outcome = OutcomeTransportError
		attrs = append(attrs, attribute.String(attrErrorType, fmt.Sprintf("%T", err)))
	case status >= 400:
		outcome = OutcomeErrorResponse
	}
	if err == nil {
		eventAttrs = append(eventAttrs, attribute.Int(attrStatusCode, status))
	}
	attrs = append(attrs, attribute.String(attrOutcome, outcome))

	if r.attempts != nil {
		r.attempts.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	oteltrace.SpanFromContext(ctx).AddEvent(EventAttempt, oteltrace.WithAttributes(eventAttrs...))
}

// Retry records a scheduled retry.
func (r *Recorder) Retry(ctx context.Context, endpoint string, attempt int, delay time.Duration) {
	if r.retries != nil {
		r.retries.Add(ctx, 1, metric.WithAttributes(attribute.String(attrEndpoint, endpoint)))
	}
	oteltrace.SpanFromContext(ctx).AddEvent(EventRetry, oteltrace.WithAttributes(
		attribute.Int(attrAttempt, attempt),
		attribute.Int64("apifetch.retry.delay_ms", delay.Milliseconds()),
	))
}

// End closes the fetch span and records its duration.
func (r *Recorder) End(ctx context.Context, span oteltrace.Span, endpoint string, start time.Time, outcome string, status int, err error) {
	attrs := []attribute.KeyValue{
		attribute.String(attrEndpoint, endpoint),
		attribute.String(attrOutcome, outcome),
	}
	if r.duration != nil {
		r.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
	}

	span.SetAttributes(attribute.String(attrOutcome, outcome))
	if status > 0 {
		span.SetAttributes(attribute.Int(attrStatusCode, status))
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case outcome != OutcomeOK:
		span.SetStatus(codes.Error, outcome)
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
