package fixtures

import (
	"encoding/json"
	"fmt"
	nethttp "net/http"

	"github.com/gaborage/go-apifetch/fetch"
	"github.com/gaborage/go-apifetch/testing/mocks"
)

// Content type constants
const (
	ApplicationJSONContentType = "application/json"
	TextPlainContentType       = "text/plain; charset=utf-8"
)

// JSONResponse builds a response whose body is body encoded as JSON.
// It panics when body cannot be encoded.
func JSONResponse(status int, body any) *fetch.RawResponse {
	data, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("fixtures: cannot encode %T: %v", body, err))
	}
	return &fetch.RawResponse{
		StatusCode: status,
		Headers:    nethttp.Header{"Content-Type": []string{ApplicationJSONContentType}},
		Body:       data,
	}
}

// TextResponse builds a plain text response.
func TextResponse(status int, text string) *fetch.RawResponse {
	return &fetch.RawResponse{
		StatusCode: status,
		Headers:    nethttp.Header{"Content-Type": []string{TextPlainContentType}},
		Body:       []byte(text),
	}
}

// StatusResponse builds a response with no body.
func StatusResponse(status int) *fetch.RawResponse {
	return &fetch.RawResponse{StatusCode: status, Headers: nethttp.Header{}}
}

// WithHeader returns a copy of resp with the header set.
func WithHeader(resp *fetch.RawResponse, key, value string) *fetch.RawResponse {
	out := *resp
	out.Headers = resp.Headers.Clone()
	if out.Headers == nil {
		out.Headers = nethttp.Header{}
	}
	out.Headers.Set(key, value)
	return &out
}

// NewHealthyTransport creates a transport that answers every call with resp.
func NewHealthyTransport(resp *fetch.RawResponse) *mocks.MockTransport {
	tr := &mocks.MockTransport{}
	tr.ExpectResponse(resp)
	return tr
}

// NewFlakyTransport creates a transport that answers the first failures calls
// with failure and every later call with success. This is useful for testing
// retry policies.
func NewFlakyTransport(failures int, failure, success *fetch.RawResponse) *mocks.MockTransport {
	tr := &mocks.MockTransport{}
	if failures > 0 {
		tr.ExpectResponse(failure).Times(failures)
	}
	tr.ExpectResponse(success)
	return tr
}

// NewFailingTransport creates a transport that faults on every call.
func NewFailingTransport(err error) *mocks.MockTransport {
	tr := &mocks.MockTransport{}
	tr.ExpectError(err)
	return tr
}
