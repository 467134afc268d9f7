package retry

import (
	"context"
	crand "crypto/rand"
	"errors"
	"math"
	"math/big"
	nethttp "net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gaborage/go-apifetch/api"
)

const (
	// DefaultMaxRetries is the retry cap used by Backoff when none is configured.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the first backoff step.
	DefaultBaseDelay = 100 * time.Millisecond
	// DefaultMaxDelay caps a single backoff delay.
	DefaultMaxDelay = 30 * time.Second

	// maxShift caps the backoff exponent.
	maxShift = 20
)

// DefaultStatuses are retried by Backoff when no statuses are configured.
var DefaultStatuses = []int{
	nethttp.StatusTooManyRequests,
	nethttp.StatusInternalServerError,
	nethttp.StatusBadGateway,
	nethttp.StatusServiceUnavailable,
	nethttp.StatusGatewayTimeout,
}

// Never is an evaluator that never retries.
func Never() Evaluator {
	return func(context.Context, Attempt) (Decision, error) {
		return DoNotRetry(), nil
	}
}

// OnStatus retries responses with one of the given statuses after a constant delay.
func OnStatus(delay time.Duration, statuses ...int) Evaluator {
	return func(_ context.Context, a Attempt) (Decision, error) {
		if hasStatus(a.Result, func(s int) bool { return slices.Contains(statuses, s) }) {
			return After(delay), nil
		}
		return DoNotRetry(), nil
	}
}

// OnServerError retries 5xx responses after a constant delay.
func OnServerError(delay time.Duration) Evaluator {
	return func(_ context.Context, a Attempt) (Decision, error) {
		if hasStatus(a.Result, func(s int) bool { return s >= 500 && s < 600 }) {
			return After(delay), nil
		}
		return DoNotRetry(), nil
	}
}

// OnAnyFailure retries every failed response after a constant delay.
func OnAnyFailure(delay time.Duration) Evaluator {
	return func(_ context.Context, a Attempt) (Decision, error) {
		if hasStatus(a.Result, func(int) bool { return true }) {
			return After(delay), nil
		}
		return DoNotRetry(), nil
	}
}

// MaxRetries stops after n retries and otherwise defers to next.
func MaxRetries(n int, next Evaluator) Evaluator {
	return func(ctx context.Context, a Attempt) (Decision, error) {
		if a.Count >= n {
			return DoNotRetry(), nil
		}
		return next(ctx, a)
	}
}

// Chain asks each evaluator in order and returns the first decision that retries.
func Chain(evaluators ...Evaluator) Evaluator {
	return func(ctx context.Context, a Attempt) (Decision, error) {
		for _, e := range evaluators {
			if e == nil {
				continue
			}
			d, err := e(ctx, a)
			if err != nil {
				return DoNotRetry(), err
			}
			if d.Retry {
				return d, nil
			}
		}
		return DoNotRetry(), nil
	}
}

// Unless attaches canceled to every retry decision of next.
// It does not replace a cancellation check next already supplied; both are consulted.
func Unless(canceled func() bool, next Evaluator) Evaluator {
	return func(ctx context.Context, a Attempt) (Decision, error) {
		d, err := next(ctx, a)
		if err != nil || !d.Retry || canceled == nil {
			return d, err
		}
		prev := d.Canceled
		d.Canceled = func() bool {
			return canceled() || (prev != nil && prev())
		}
		return d, nil
	}
}

// BackoffConfig configures exponential backoff.
//
// Invalid values are normalized: MaxRetries < 0 becomes 0, BaseDelay <= 0
// becomes DefaultBaseDelay, MaxDelay <= 0 becomes DefaultMaxDelay and a
// MaxDelay below BaseDelay becomes BaseDelay.
type BackoffConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Statuses lists retryable statuses; empty means DefaultStatuses.
	Statuses []int
	// Jitter maps the computed delay to the one actually used; nil means full jitter.
	Jitter func(time.Duration) time.Duration
}

func (c *BackoffConfig) normalize() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = c.BaseDelay
	}
	if len(c.Statuses) == 0 {
		c.Statuses = DefaultStatuses
	}
	if c.Jitter == nil {
		c.Jitter = FullJitter
	}
}

// Backoff retries configured statuses with delay = BaseDelay * 2^count,
// capped at MaxDelay and passed through Jitter.
func Backoff(cfg BackoffConfig) Evaluator {
	cfg.normalize()
	return func(_ context.Context, a Attempt) (Decision, error) {
		if a.Count >= cfg.MaxRetries {
			return DoNotRetry(), nil
		}
		if !hasStatus(a.Result, func(s int) bool { return slices.Contains(cfg.Statuses, s) }) {
			return DoNotRetry(), nil
		}
		return After(cfg.Jitter(BackoffDelay(cfg.BaseDelay, cfg.MaxDelay, a.Count))), nil
	}
}

// BackoffDelay returns base * 2^attempt capped at maxDelay.
func BackoffDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxShift {
		attempt = maxShift
	}
	if base <= 0 || base > maxDelay>>attempt {
		return maxDelay
	}
	return base << attempt
}

// FullJitter returns a random duration in [0, d).
func FullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	n, err := crand.Int(crand.Reader, big.NewInt(int64(d)))
	if err != nil {
		// On RNG failure, fall back to the full delay
		return d
	}
	return time.Duration(n.Int64())
}

// NoJitter returns d unchanged.
func NoJitter(d time.Duration) time.Duration {
	return d
}

// RespectRetryAfter lengthens next's delay to the server's Retry-After hint.
// The hint never shortens the delay and is ignored when next does not retry.
// Hints longer than maxWait stop the retry altogether; maxWait <= 0 means no limit.
func RespectRetryAfter(maxWait time.Duration, next Evaluator) Evaluator {
	return func(ctx context.Context, a Attempt) (Decision, error) {
		d, err := next(ctx, a)
		if err != nil || !d.Retry || a.Result == nil {
			return d, err
		}
		hint, ok := ParseRetryAfter(a.Result.Headers.Get("Retry-After"), time.Now())
		if !ok {
			return d, nil
		}
		if maxWait > 0 && hint > maxWait {
			return DoNotRetry(), nil
		}
		if hint > d.Delay {
			d.Delay = hint
		}
		return d, nil
	}
}

// ParseRetryAfter parses a Retry-After header given as delta-seconds or an HTTP date.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	// ParseInt saturates out-of-range values, so huge hints clamp below.
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		if secs < 0 {
			return 0, false
		}
		if secs > math.MaxInt64/int64(time.Second) {
			return time.Duration(math.MaxInt64), true
		}
		return time.Duration(secs) * time.Second, true
	}
	when, err := nethttp.ParseTime(value)
	if err != nil {
		return 0, false
	}
	d := when.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

func hasStatus(r *api.Result, match func(int) bool) bool {
	return r != nil && r.Kind == api.KindErrorResponse && match(r.Status)
}
