package retry

import (
	"context"
	"errors"
	"math"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-apifetch/api"
)

func failedAttempt(status, count int) Attempt {
	return Attempt{
		Descriptor: api.Descriptor{URL: "/widgets/{id}"},
		Result:     api.ErrorResponse(status, nethttp.Header{}, nil, ""),
		Count:      count,
	}
}

func decide(t *testing.T, e Evaluator, a Attempt) Decision {
	t.Helper()
	d, err := e(context.Background(), a)
	require.NoError(t, err)
	return d
}

func TestDecisionConstructors(t *testing.T) {
	assert.False(t, DoNotRetry().Retry)

	d := After(-time.Second)
	assert.True(t, d.Retry)
	assert.Zero(t, d.Delay)
	assert.False(t, d.WasCanceled())

	c := AfterUnlessCanceled(time.Millisecond, func() bool { return true })
	assert.True(t, c.Retry)
	assert.True(t, c.WasCanceled())
}

func TestNever(t *testing.T) {
	assert.False(t, decide(t, Never(), failedAttempt(500, 0)).Retry)
}

func TestStatusEvaluators(t *testing.T) {
	tests := []struct {
		name   string
		eval   Evaluator
		status int
		retry  bool
	}{
		{"on status match", OnStatus(time.Second, 429, 503), 503, true},
		{"on status miss", OnStatus(time.Second, 429, 503), 500, false},
		{"server error 502", OnServerError(0), 502, true},
		{"server error 404", OnServerError(0), 404, false},
		{"any failure 404", OnAnyFailure(0), 404, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retry, decide(t, tt.eval, failedAttempt(tt.status, 0)).Retry)
		})
	}
}

func TestStatusEvaluatorsIgnoreInvalidResults(t *testing.T) {
	a := Attempt{Result: api.Invalid("missing path parameter: id")}
	assert.False(t, decide(t, OnAnyFailure(0), a).Retry)
	assert.False(t, decide(t, OnServerError(0), Attempt{}).Retry)
}

func TestMaxRetries(t *testing.T) {
	e := MaxRetries(2, OnAnyFailure(0))

	assert.True(t, decide(t, e, failedAttempt(500, 0)).Retry)
	assert.True(t, decide(t, e, failedAttempt(500, 1)).Retry)
	assert.False(t, decide(t, e, failedAttempt(500, 2)).Retry)
}

func TestChain(t *testing.T) {
	errBoom := errors.New("boom")

	t.Run("first retrying decision wins", func(t *testing.T) {
		e := Chain(nil, OnStatus(time.Second, 429), OnServerError(2*time.Second))
		d := decide(t, e, failedAttempt(503, 0))
		assert.True(t, d.Retry)
		assert.Equal(t, 2*time.Second, d.Delay)
	})

	t.Run("no evaluator retries", func(t *testing.T) {
		assert.False(t, decide(t, Chain(Never()), failedAttempt(503, 0)).Retry)
	})

	t.Run("error stops the chain", func(t *testing.T) {
		failing := func(context.Context, Attempt) (Decision, error) { return Decision{}, errBoom }
		_, err := Chain(failing, OnAnyFailure(0))(context.Background(), failedAttempt(500, 0))
		assert.ErrorIs(t, err, errBoom)
	})
}

func TestUnless(t *testing.T) {
	canceled := false
	e := Unless(func() bool { return canceled }, OnAnyFailure(0))

	d := decide(t, e, failedAttempt(500, 0))
	require.True(t, d.Retry)
	assert.False(t, d.WasCanceled())

	canceled = true
	assert.True(t, d.WasCanceled(), "check is evaluated lazily")

	t.Run("keeps the inner check", func(t *testing.T) {
		inner := func(context.Context, Attempt) (Decision, error) {
			return AfterUnlessCanceled(0, func() bool { return true }), nil
		}
		d := decide(t, Unless(func() bool { return false }, inner), failedAttempt(500, 0))
		assert.True(t, d.WasCanceled())
	})

	t.Run("does not touch do-not-retry", func(t *testing.T) {
		d := decide(t, Unless(func() bool { return true }, Never()), failedAttempt(500, 0))
		assert.Nil(t, d.Canceled)
	})
}

func TestBackoff(t *testing.T) {
	e := Backoff(BackoffConfig{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   300 * time.Millisecond,
		Jitter:     NoJitter,
	})

	delays := make([]time.Duration, 0, 3)
	for count := 0; count < 3; count++ {
		d := decide(t, e, failedAttempt(503, count))
		require.True(t, d.Retry)
		delays = append(delays, d.Delay)
	}
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}, delays)

	assert.False(t, decide(t, e, failedAttempt(503, 3)).Retry, "retry cap")
	assert.False(t, decide(t, e, failedAttempt(400, 0)).Retry, "status not retryable")
}

func TestBackoffNormalize(t *testing.T) {
	cfg := BackoffConfig{MaxRetries: -1, MaxDelay: time.Millisecond}
	cfg.normalize()

	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, DefaultBaseDelay, cfg.BaseDelay)
	assert.Equal(t, DefaultBaseDelay, cfg.MaxDelay)
	assert.Equal(t, DefaultStatuses, cfg.Statuses)
	assert.NotNil(t, cfg.Jitter)
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, 10*time.Millisecond, BackoffDelay(10*time.Millisecond, time.Second, -1))
	assert.Equal(t, 80*time.Millisecond, BackoffDelay(10*time.Millisecond, time.Second, 3))
	assert.Equal(t, time.Second, BackoffDelay(10*time.Millisecond, time.Second, 60))
	assert.Equal(t, time.Duration(1<<62), BackoffDelay(200*24*time.Hour, 1<<62, 20))
	assert.Equal(t, time.Minute, BackoffDelay(0, time.Minute, 2))
}

func TestFullJitter(t *testing.T) {
	assert.Zero(t, FullJitter(0))
	for i := 0; i < 50; i++ {
		d := FullJitter(10 * time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 10*time.Millisecond)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	d, ok := ParseRetryAfter("7", now)
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, d)

	d, ok = ParseRetryAfter("99999999999", now)
	require.True(t, ok)
	assert.Equal(t, time.Duration(math.MaxInt64), d)

	d, ok = ParseRetryAfter("999999999999999999999999", now)
	require.True(t, ok)
	assert.Equal(t, time.Duration(math.MaxInt64), d)

	d, ok = ParseRetryAfter(now.Add(30*time.Second).Format(nethttp.TimeFormat), now)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, d)

	d, ok = ParseRetryAfter(now.Add(-time.Minute).Format(nethttp.TimeFormat), now)
	require.True(t, ok)
	assert.Zero(t, d)

	for _, bad := range []string{"", "-3", "soon"} {
		_, ok := ParseRetryAfter(bad, now)
		assert.False(t, ok, bad)
	}
}

func TestRespectRetryAfter(t *testing.T) {
	withHint := func(hint string) Attempt {
		a := failedAttempt(503, 0)
		a.Result.Headers.Set("Retry-After", hint)
		return a
	}

	t.Run("hint lengthens delay", func(t *testing.T) {
		d := decide(t, RespectRetryAfter(0, OnServerError(time.Second)), withHint("3"))
		assert.True(t, d.Retry)
		assert.Equal(t, 3*time.Second, d.Delay)
	})

	t.Run("hint never shortens delay", func(t *testing.T) {
		d := decide(t, RespectRetryAfter(0, OnServerError(5*time.Second)), withHint("1"))
		assert.Equal(t, 5*time.Second, d.Delay)
	})

	t.Run("hint beyond max wait stops retrying", func(t *testing.T) {
		d := decide(t, RespectRetryAfter(2*time.Second, OnServerError(0)), withHint("120"))
		assert.False(t, d.Retry)
	})

	t.Run("oversized hint stops retrying", func(t *testing.T) {
		d := decide(t, RespectRetryAfter(time.Hour, OnServerError(0)), withHint("99999999999"))
		assert.False(t, d.Retry)
	})

	t.Run("no hint", func(t *testing.T) {
		d := decide(t, RespectRetryAfter(0, OnServerError(time.Second)), failedAttempt(503, 0))
		assert.Equal(t, time.Second, d.Delay)
	})

	t.Run("inner refusal wins", func(t *testing.T) {
		d := decide(t, RespectRetryAfter(0, Never()), withHint("1"))
		assert.False(t, d.Retry)
	})
}
