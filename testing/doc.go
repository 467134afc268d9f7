// Package testing provides test doubles for code built on the fetcher.
//
// # Mocks
//
// The mocks subpackage provides testify-based implementations of
// fetch.Transport and of the retry evaluator, so tests can script responses
// and assert on the attempts the fetcher made.
//
// # Fixtures
//
// The fixtures subpackage builds raw responses and pre-configured transports
// for common scenarios: a healthy server, a server that fails a number of
// times before answering, and a transport that faults on every call.
//
// # Usage
//
//	import (
//		"github.com/gaborage/go-apifetch/testing/fixtures"
//		"github.com/gaborage/go-apifetch/testing/mocks"
//	)
//
//	tr := fixtures.NewFlakyTransport(2, fixtures.StatusResponse(503), fixtures.JSONResponse(200, widget))
//	f, _ := fetch.NewBuilder(log).WithTransport(tr).Build()
//	// ... fetch with a retry evaluator ...
//	tr.AssertNumberOfCalls(t, "Do", 3)
package testing
