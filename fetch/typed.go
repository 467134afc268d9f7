package fetch

import (
	"context"
	"fmt"
	nethttp "net/http"

	"github.com/gaborage/go-apifetch/api"
)

// TypedResult is an api.Result whose bodies are already asserted to the
// endpoint's Go types. Exactly one of the body fields is meaningful,
// depending on Kind.
type TypedResult[Res, ErrRes any] struct {
	Kind    api.Kind
	Status  int
	Headers nethttp.Header
	// Body is set for api.KindOK.
	Body Res
	// ErrorBody is set for api.KindErrorResponse when the body decoded into ErrRes.
	ErrorBody ErrRes
	// RawBody holds a body that did not decode into Res or ErrRes.
	RawBody any
	Message string
}

// OK reports whether the call succeeded.
func (r *TypedResult[Res, ErrRes]) OK() bool {
	return r != nil && r.Kind == api.KindOK
}

// Call performs a fetch for a typed endpoint.
func Call[Req, Res, ErrRes any](
	ctx context.Context,
	f *Fetcher,
	ep api.Endpoint[Req, Res, ErrRes],
	req Req,
	opts ...Option,
) (*TypedResult[Res, ErrRes], error) {
	result, err := f.Fetch(ctx, ep.Descriptor, req, opts...)
	if result == nil {
		return nil, err
	}

	return toTyped[Res, ErrRes](ep.Descriptor, result), err
}

func toTyped[Res, ErrRes any](desc api.Descriptor, r *api.Result) *TypedResult[Res, ErrRes] {
	out := &TypedResult[Res, ErrRes]{
		Kind:    r.Kind,
		Status:  r.Status,
		Headers: r.Headers,
		Message: r.Message,
	}

	switch r.Kind {
	case api.KindOK:
		if r.Body == nil {
			return out
		}
		body, ok := r.Body.(Res)
		if !ok {
			out.RawBody = r.Body
			out.Message = fmt.Sprintf("%s returned body of type %T, want %T", desc, r.Body, out.Body)
			return out
		}
		out.Body = body
	case api.KindErrorResponse:
		if body, ok := r.Body.(ErrRes); ok {
			out.ErrorBody = body
		} else {
			out.RawBody = r.Body
		}
	}
	return out
}
