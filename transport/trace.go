package transport

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	nethttp "net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	traceIDKey     contextKey = "trace_id"
	traceParentKey contextKey = "traceparent"
	traceStateKey  contextKey = "tracestate"

	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = "tracestate"
)

// WithTraceID adds a trace ID to the context for propagation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext returns a trace ID from context if present.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok && traceID != "" {
		return traceID, true
	}
	return "", false
}

// WithTraceParent adds a W3C traceparent value to the context.
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return context.WithValue(ctx, traceParentKey, traceParent)
}

// WithTraceState adds a W3C tracestate value to the context.
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return context.WithValue(ctx, traceStateKey, traceState)
}

func stringFromContext(ctx context.Context, key contextKey) (string, bool) {
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

func newTraceID() string {
	return uuid.New().String()
}

// applyTraceHeaders sets the request ID header and, if enabled, W3C trace context.
// Headers already present on the request are left untouched.
func (c *Client) applyTraceHeaders(ctx context.Context, header nethttp.Header) {
	name := c.config.TraceIDHeader
	if header.Get(name) == "" {
		traceID, ok := TraceIDFromContext(ctx)
		if !ok {
			traceID = c.config.NewTraceID()
		}
		header.Set(name, traceID)
	}

	if !c.config.EnableW3CTrace || header.Get(HeaderTraceParent) != "" {
		return
	}

	if oteltrace.SpanContextFromContext(ctx).IsValid() {
		propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(header))
		return
	}

	if tp, ok := stringFromContext(ctx, traceParentKey); ok {
		header.Set(HeaderTraceParent, tp)
		if ts, ok := stringFromContext(ctx, traceStateKey); ok {
			header.Set(HeaderTraceState, ts)
		}
		return
	}
	header.Set(HeaderTraceParent, GenerateTraceParent())
}

// GenerateTraceParent creates a minimal W3C traceparent header value.
// Format: version(2)-trace-id(32)-span-id(16)-flags(2), e.g., "00-<32>-<16>-01"
func GenerateTraceParent() string {
	traceID := make([]byte, 16)
	spanID := make([]byte, 8)
	_, _ = crand.Read(traceID)
	_, _ = crand.Read(spanID)
	if allZero(traceID) {
		traceID[len(traceID)-1] = 0x01
	}
	if allZero(spanID) {
		spanID[len(spanID)-1] = 0x01
	}
	return "00-" + hex.EncodeToString(traceID) + "-" + hex.EncodeToString(spanID) + "-01"
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
