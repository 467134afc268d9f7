// Package api defines the static description of an HTTP endpoint, the request
// shapes accepted for it and the tagged result produced by a fetch.
package api

import (
	"fmt"
	nethttp "net/http"
	"slices"
)

// ResponseType declares how a response body is decoded.
type ResponseType string

const (
	ResponseTypeJSON    ResponseType = "json"
	ResponseTypeText    ResponseType = "text"
	ResponseTypeBinary  ResponseType = "binary"
	ResponseTypeDynamic ResponseType = "dynamic"
)

// IsSupported reports whether the response type can be decoded by the fetcher.
// Dynamic is handled separately and is reported as supported.
func (t ResponseType) IsSupported() bool {
	switch t {
	case ResponseTypeJSON, ResponseTypeText, ResponseTypeBinary, ResponseTypeDynamic:
		return true
	default:
		return false
	}
}

// BodyType declares how a request body is encoded.
type BodyType string

const (
	BodyTypeJSON   BodyType = "json"
	BodyTypeText   BodyType = "text"
	BodyTypeBinary BodyType = "binary"
	BodyTypeForm   BodyType = "form"
)

// CredentialsMode controls whether configured credentials are sent with a request.
type CredentialsMode string

const (
	CredentialsOmit       CredentialsMode = "omit"
	CredentialsSameOrigin CredentialsMode = "same-origin"
	CredentialsInclude    CredentialsMode = "include"
)

// Descriptor is the immutable description of one endpoint.
//
// URL may be absolute or relative; relative URLs are resolved against the
// fetcher's base URL. Path parameters are written as {name}.
//
// ResponseBody and ErrorBody are shape prototypes: the zero value of the Go
// type a body decodes into. A nil prototype decodes into a generic value.
type Descriptor struct {
	Name            string
	Method          string
	URL             string
	RequestBodyType BodyType
	ResponseType    ResponseType
	Credentials     CredentialsMode
	SuccessStatuses []int
	ErrorStatuses   []int
	ResponseBody    any
	ErrorBody       any
}

// WithDefaults returns a copy with unset fields filled in.
func (d Descriptor) WithDefaults() Descriptor {
	if d.Method == "" {
		d.Method = nethttp.MethodGet
	}
	if d.RequestBodyType == "" {
		d.RequestBodyType = BodyTypeJSON
	}
	if d.ResponseType == "" {
		d.ResponseType = ResponseTypeJSON
	}
	if d.Credentials == "" {
		d.Credentials = CredentialsSameOrigin
	}
	return d
}

// Validate checks the descriptor for configuration errors that make it unusable.
func (d Descriptor) Validate() error {
	rt := d.ResponseType
	if rt == "" {
		rt = ResponseTypeJSON
	}
	if rt != ResponseTypeDynamic && !rt.IsSupported() {
		return &ConfigurationError{
			Endpoint: d.String(),
			Reason:   fmt.Sprintf("unsupported HTTP response type (%s)", rt),
			wrapped:  ErrUnsupportedResponseType,
		}
	}
	if d.URL == "" {
		return &ConfigurationError{Endpoint: d.String(), Reason: "url cannot be empty"}
	}
	return nil
}

// IsSuccessStatus reports whether status is a declared success status.
// Without declared statuses every 2xx is a success.
func (d Descriptor) IsSuccessStatus(status int) bool {
	if len(d.SuccessStatuses) == 0 {
		return status >= 200 && status < 300
	}
	return slices.Contains(d.SuccessStatuses, status)
}

// IsErrorStatus reports whether status is a declared error status.
// Without declared statuses every status that is not a success is an error.
func (d Descriptor) IsErrorStatus(status int) bool {
	if len(d.ErrorStatuses) == 0 {
		return !d.IsSuccessStatus(status)
	}
	return slices.Contains(d.ErrorStatuses, status)
}

func (d Descriptor) String() string {
	if d.Name != "" {
		return d.Name
	}
	method := d.Method
	if method == "" {
		method = nethttp.MethodGet
	}
	return method + " " + d.URL
}

// Endpoint binds a descriptor to the Go types of its request and response bodies.
type Endpoint[Req, Res, ErrRes any] struct {
	Descriptor
}

// NewEndpoint creates a typed endpoint. The body prototypes of the descriptor
// are derived from the type parameters.
func NewEndpoint[Req, Res, ErrRes any](d Descriptor) Endpoint[Req, Res, ErrRes] {
	var res Res
	var errRes ErrRes
	d.ResponseBody = res
	d.ErrorBody = errRes
	return Endpoint[Req, Res, ErrRes]{Descriptor: d}
}
