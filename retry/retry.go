// Package retry defines the contract used to decide whether a failed fetch
// attempt is tried again, together with ready-made evaluators.
//
// An Evaluator is consulted once per failed attempt, never for a success. It
// returns DoNotRetry or After(delay, canceled). The fetcher waits for the
// delay and then polls canceled exactly once; a true result stops the loop
// and the last failure is returned.
package retry

import (
	"context"
	"time"

	"github.com/gaborage/go-apifetch/api"
)

// Attempt is the input of an Evaluator.
type Attempt struct {
	Descriptor api.Descriptor
	Request    any
	Result     *api.Result
	// Count is the number of evaluations that happened before this one.
	Count int
}

// Decision is the output of an Evaluator.
type Decision struct {
	Retry bool
	Delay time.Duration
	// Canceled, when set, is polled once after Delay elapses.
	Canceled func() bool
}

// Evaluator decides whether a failed attempt is retried.
//
// An error returned by an evaluator aborts the fetch and is returned to the caller.
type Evaluator func(ctx context.Context, a Attempt) (Decision, error)

// DoNotRetry stops the loop.
func DoNotRetry() Decision {
	return Decision{}
}

// After retries once delay has elapsed. A negative delay is treated as zero.
func After(delay time.Duration) Decision {
	if delay < 0 {
		delay = 0
	}
	return Decision{Retry: true, Delay: delay}
}

// AfterUnlessCanceled retries after delay unless canceled reports true once the delay has elapsed.
func AfterUnlessCanceled(delay time.Duration, canceled func() bool) Decision {
	d := After(delay)
	d.Canceled = canceled
	return d
}

// WasCanceled reports whether the decision's cancellation check fires.
func (d Decision) WasCanceled() bool {
	return d.Canceled != nil && d.Canceled()
}
