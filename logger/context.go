package logger

import (
	"context"
	"sync/atomic"
)

type contextKey string

const (
	// fetchCounterKey tracks outbound API attempts made on behalf of one request
	fetchCounterKey contextKey = "fetch_attempt_counter"
	// fetchElapsedKey tracks total time spent in outbound API attempts
	fetchElapsedKey contextKey = "fetch_elapsed_nanos"
)

// WithFetchCounter returns a context that accumulates outbound fetch attempts
// and their elapsed time. Typically installed by inbound request middleware.
func WithFetchCounter(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, fetchCounterKey, &counter)
	ctx = context.WithValue(ctx, fetchElapsedKey, &elapsed)
	return ctx
}

// IncrementFetchCounter adds one attempt to the counter in ctx, if any.
func IncrementFetchCounter(ctx context.Context) {
	if counter, ok := ctx.Value(fetchCounterKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
}

// GetFetchCounter returns the number of attempts recorded in ctx.
func GetFetchCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(fetchCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

// AddFetchElapsed adds nanos to the elapsed time in ctx, if any.
func AddFetchElapsed(ctx context.Context, nanos int64) {
	if elapsed, ok := ctx.Value(fetchElapsedKey).(*int64); ok && elapsed != nil {
		atomic.AddInt64(elapsed, nanos)
	}
}

// GetFetchElapsed returns the accumulated elapsed nanoseconds in ctx.
func GetFetchElapsed(ctx context.Context) int64 {
	if elapsed, ok := ctx.Value(fetchElapsedKey).(*int64); ok && elapsed != nil {
		return atomic.LoadInt64(elapsed)
	}
	return 0
}
