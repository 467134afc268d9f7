package api

import "net/url"

// Request is the dynamically typed request bag for one invocation.
//
// Typed callers usually pass their own struct instead, tagging fields with
// param, query, header and json (see validation.ParseRequestTags).
type Request struct {
	Headers map[string]string
	Params  map[string]string
	Query   url.Values
	Body    any
}
