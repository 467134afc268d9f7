package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/go-apifetch/retry"
)

// MockEvaluator provides a testify-based mock of a retry evaluator.
// Pass Evaluator() wherever a retry.Evaluator is expected.
//
// Example usage:
//
//	eval := &mocks.MockEvaluator{}
//	eval.ExpectRetryAt(0, time.Millisecond)
//	eval.ExpectStop()
//
//	result, err := f.Fetch(ctx, desc, req, fetch.WithRetry(eval.Evaluator()))
//	eval.AssertNumberOfCalls(t, "Evaluate", 2)
type MockEvaluator struct {
	mock.Mock
}

// Evaluate records the attempt and returns the scripted decision.
func (m *MockEvaluator) Evaluate(ctx context.Context, attempt retry.Attempt) (retry.Decision, error) {
	arguments := m.Called(ctx, attempt)

	var d retry.Decision
	if v := arguments.Get(0); v != nil {
		d = v.(retry.Decision)
	}
	return d, arguments.Error(1)
}

// Evaluator returns m as a retry.Evaluator.
func (m *MockEvaluator) Evaluator() retry.Evaluator {
	return m.Evaluate
}

// ExpectRetry retries every evaluated attempt after delay.
func (m *MockEvaluator) ExpectRetry(delay time.Duration) *mock.Call {
	return m.On("Evaluate", mock.Anything, mock.Anything).Return(retry.After(delay), nil)
}

// ExpectRetryAt retries the attempt with the given count after delay.
func (m *MockEvaluator) ExpectRetryAt(count int, delay time.Duration) *mock.Call {
	return m.On("Evaluate", mock.Anything, mock.MatchedBy(func(a retry.Attempt) bool {
		return a.Count == count
	})).Return(retry.After(delay), nil)
}

// ExpectStop declines every evaluated attempt not matched by an earlier expectation.
func (m *MockEvaluator) ExpectStop() *mock.Call {
	return m.On("Evaluate", mock.Anything, mock.Anything).Return(retry.DoNotRetry(), nil)
}

// ExpectError fails evaluation with err.
func (m *MockEvaluator) ExpectError(err error) *mock.Call {
	return m.On("Evaluate", mock.Anything, mock.Anything).Return(retry.Decision{}, err)
}
