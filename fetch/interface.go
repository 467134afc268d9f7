package fetch

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gaborage/go-apifetch/api"
	"github.com/gaborage/go-apifetch/validation"
)

// Transport performs exactly one network call. A returned error is a
// transport fault: it is propagated by the fetcher and never retried there.
type Transport interface {
	Do(ctx context.Context, req *TransportRequest) (*RawResponse, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *TransportRequest) (*RawResponse, error)

// Do calls f.
func (f TransportFunc) Do(ctx context.Context, req *TransportRequest) (*RawResponse, error) {
	return f(ctx, req)
}

// TransportRequest is the concrete input of one network call.
type TransportRequest struct {
	Method      string
	URL         string
	Headers     nethttp.Header
	Body        []byte
	Credentials api.CredentialsMode
	// Timeout bounds this call only; zero leaves the transport's own limit in place.
	Timeout time.Duration
}

// RawResponse is what a transport returns for a completed call.
type RawResponse struct {
	StatusCode int
	Headers    nethttp.Header
	Body       []byte
	Elapsed    time.Duration
}

// Materialized holds the transport inputs derived from a descriptor and a request.
type Materialized struct {
	URL     string
	Headers nethttp.Header
	Body    []byte
}

// Materializer turns a descriptor and a request into transport inputs.
//
// Failures caused by the request itself must be reported as *MaterializationError;
// they become api.KindInvalid results. Any other error is propagated.
type Materializer interface {
	Materialize(ctx context.Context, desc api.Descriptor, req any, mode validation.Mode) (*Materialized, error)
}

// Classifier maps a raw response to a result. Status conformance is always
// checked strictly; mode only governs body validation.
type Classifier interface {
	Classify(ctx context.Context, desc api.Descriptor, req any, raw *RawResponse, mode validation.Mode) (*api.Result, error)
}

// TransportOptions supplement or override the derived transport inputs.
// Set fields win over derived values; unset fields leave them alone.
type TransportOptions struct {
	Method      string
	URL         string
	Headers     nethttp.Header
	Body        []byte
	Credentials api.CredentialsMode
	Timeout     time.Duration
}

// apply performs the shallow, caller-wins merge of opts over req.
func (o *TransportOptions) apply(req *TransportRequest) {
	if o == nil {
		return
	}
	if o.Method != "" {
		req.Method = o.Method
	}
	if o.URL != "" {
		req.URL = o.URL
	}
	if o.Headers != nil {
		req.Headers = o.Headers.Clone()
	}
	if o.Body != nil {
		req.Body = o.Body
	}
	if o.Credentials != "" {
		req.Credentials = o.Credentials
	}
	if o.Timeout > 0 {
		req.Timeout = o.Timeout
	}
}
