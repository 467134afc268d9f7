package api

import (
	nethttp "net/http"
)

// Kind is the tag of a Result.
type Kind int

const (
	// KindOK is a response whose status the descriptor declares as success.
	KindOK Kind = iota
	// KindErrorResponse is a well-formed response classified as an error.
	KindErrorResponse
	// KindInvalid is a request that could not be built; no status exists.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindErrorResponse:
		return "error_response"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Result is the outcome of a fetch. Exactly one variant is active, selected by
// Kind; read the payload through Response or Failure.
type Result struct {
	Kind    Kind
	Status  int
	Headers nethttp.Header
	Body    any
	// Message describes the failure for KindInvalid and, when a response
	// failed hard validation or decoding, for KindErrorResponse.
	Message string
}

// Response is the payload of a classified response.
type Response struct {
	Status  int
	Headers nethttp.Header
	Body    any
}

// Failure is the payload of a failed result.
type Failure struct {
	// HasStatus is false when the request never reached the server.
	HasStatus bool
	Status    int
	Headers   nethttp.Header
	Body      any
	Message   string
}

// OK creates a success result.
func OK(status int, headers nethttp.Header, body any) *Result {
	return &Result{Kind: KindOK, Status: status, Headers: headers, Body: body}
}

// ErrorResponse creates a classified error result.
func ErrorResponse(status int, headers nethttp.Header, body any, message string) *Result {
	return &Result{Kind: KindErrorResponse, Status: status, Headers: headers, Body: body, Message: message}
}

// Invalid creates a result for a request that could not be materialized.
func Invalid(message string) *Result {
	return &Result{Kind: KindInvalid, Message: message}
}

// OK reports whether the result is a success.
func (r *Result) OK() bool {
	return r != nil && r.Kind == KindOK
}

// Response returns the success payload, or false when the result is a failure.
func (r *Result) Response() (Response, bool) {
	if !r.OK() {
		return Response{}, false
	}
	return Response{Status: r.Status, Headers: r.Headers, Body: r.Body}, true
}

// Failure returns the failure payload, or false when the result is a success.
func (r *Result) Failure() (Failure, bool) {
	if r == nil || r.Kind == KindOK {
		return Failure{}, false
	}
	if r.Kind == KindInvalid {
		return Failure{Message: r.Message}, true
	}
	return Failure{
		HasStatus: true,
		Status:    r.Status,
		Headers:   r.Headers,
		Body:      r.Body,
		Message:   r.Message,
	}, true
}
