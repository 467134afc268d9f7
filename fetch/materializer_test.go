package fetch

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-apifetch/api"
	"github.com/gaborage/go-apifetch/validation"
)

type searchRequest struct {
	Org    string   `param:"org"`
	Tags   []string `query:"tag"`
	Limit  int      `query:"limit,omitempty"`
	Tenant string   `header:"X-Tenant"`
	Name   string   `json:"name" validate:"required"`
	Note   string   `json:"note,omitempty"`
	Secret string   `json:"-"`
}

func newTestMaterializer() *DefaultMaterializer {
	return NewMaterializer("https://api.example.com/", nil, nil)
}

func TestMaterializeTaggedStruct(t *testing.T) {
	m := newTestMaterializer()
	desc := api.Descriptor{Method: nethttp.MethodPost, URL: "/orgs/{org}/search"}.WithDefaults()

	out, err := m.Materialize(context.Background(), desc, &searchRequest{
		Org:    "acme co",
		Tags:   []string{"a", "b"},
		Tenant: "t-1",
		Name:   "gear",
		Secret: "hidden",
	}, validation.ModeHard)

	require.NoError(t, err)
	u, err := url.Parse(out.URL)
	require.NoError(t, err)
	assert.Equal(t, "api.example.com", u.Host)
	assert.Equal(t, "/orgs/acme%20co/search", u.EscapedPath())
	assert.Equal(t, []string{"a", "b"}, u.Query()["tag"])
	assert.False(t, u.Query().Has("limit"))
	assert.Equal(t, "t-1", out.Headers.Get("X-Tenant"))
	assert.Equal(t, "application/json", out.Headers.Get("Content-Type"))
	assert.JSONEq(t, `{"name":"gear"}`, string(out.Body))
}

func TestMaterializeDynamicRequest(t *testing.T) {
	m := newTestMaterializer()
	desc := api.Descriptor{Method: nethttp.MethodPut, URL: "https://other.example.com/items/{id}"}.WithDefaults()

	out, err := m.Materialize(context.Background(), desc, &api.Request{
		Params:  map[string]string{"id": "42"},
		Query:   url.Values{"v": []string{"2"}},
		Headers: map[string]string{"Content-Type": "application/merge-patch+json"},
		Body:    map[string]any{"name": "gear"},
	}, validation.ModeHard)

	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com/items/42?v=2", out.URL)
	assert.Equal(t, "application/merge-patch+json", out.Headers.Get("Content-Type"))
	assert.JSONEq(t, `{"name":"gear"}`, string(out.Body))
}

func TestMaterializeNilRequest(t *testing.T) {
	m := newTestMaterializer()
	desc := api.Descriptor{URL: "/health"}.WithDefaults()

	out, err := m.Materialize(context.Background(), desc, nil, validation.ModeHard)

	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/health", out.URL)
	assert.Nil(t, out.Body)
	assert.Empty(t, out.Headers.Get("Content-Type"))
}

func TestMaterializeMissingPathParams(t *testing.T) {
	m := newTestMaterializer()
	desc := api.Descriptor{URL: "/orgs/{org}/repos/{repo}"}.WithDefaults()

	for _, mode := range []validation.Mode{validation.ModeHard, validation.ModeSoft, validation.ModeNone} {
		_, err := m.Materialize(context.Background(), desc, &api.Request{
			Params: map[string]string{"org": ""},
		}, mode)

		var matErr *MaterializationError
		require.True(t, errors.As(err, &matErr), "mode %s", mode)
		assert.Equal(t, "missing path parameter(s): org, repo", matErr.Message)
	}
}

func TestMaterializeValidationModes(t *testing.T) {
	m := newTestMaterializer()
	desc := api.Descriptor{Method: nethttp.MethodPost, URL: "/orgs/{org}/search"}.WithDefaults()
	req := &searchRequest{Org: "acme"}

	_, err := m.Materialize(context.Background(), desc, req, validation.ModeHard)
	var matErr *MaterializationError
	require.ErrorAs(t, err, &matErr)
	assert.Contains(t, matErr.Error(), "request validation failed")

	var ve *validation.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = m.Materialize(context.Background(), desc, req, validation.ModeSoft)
	assert.NoError(t, err)

	_, err = m.Materialize(context.Background(), desc, req, validation.ModeNone)
	assert.NoError(t, err)
}

func TestMaterializeUnsupportedRequestType(t *testing.T) {
	m := newTestMaterializer()
	desc := api.Descriptor{URL: "/x"}.WithDefaults()

	_, err := m.Materialize(context.Background(), desc, 42, validation.ModeHard)

	var matErr *MaterializationError
	assert.ErrorAs(t, err, &matErr)
}

func TestEncodeBody(t *testing.T) {
	tests := []struct {
		name        string
		bodyType    api.BodyType
		body        any
		want        string
		contentType string
		wantErr     bool
	}{
		{name: "text", bodyType: api.BodyTypeText, body: "hello", want: "hello", contentType: "text/plain; charset=utf-8"},
		{name: "text rejects struct", bodyType: api.BodyTypeText, body: struct{}{}, wantErr: true},
		{name: "binary", bodyType: api.BodyTypeBinary, body: []byte{0x1, 0x2}, want: "\x01\x02", contentType: "application/octet-stream"},
		{name: "binary rejects string", bodyType: api.BodyTypeBinary, body: "nope", wantErr: true},
		{name: "form values", bodyType: api.BodyTypeForm, body: url.Values{"a": []string{"1"}}, want: "a=1", contentType: "application/x-www-form-urlencoded"},
		{name: "form map", bodyType: api.BodyTypeForm, body: map[string]string{"b": "2"}, want: "b=2", contentType: "application/x-www-form-urlencoded"},
		{name: "form rejects slice", bodyType: api.BodyTypeForm, body: []int{1}, wantErr: true},
		{name: "json", bodyType: api.BodyTypeJSON, body: map[string]int{"n": 1}, want: `{"n":1}`, contentType: "application/json"},
		{name: "json rejects channel", bodyType: api.BodyTypeJSON, body: make(chan int), wantErr: true},
		{name: "nil body", bodyType: api.BodyTypeJSON, body: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, contentType, err := encodeBody(tt.bodyType, tt.body)
			if tt.wantErr {
				var matErr *MaterializationError
				assert.ErrorAs(t, err, &matErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
			assert.Equal(t, tt.contentType, contentType)
		})
	}
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "/a", resolveURL("", "/a"))
	assert.Equal(t, "https://h/a", resolveURL("https://h/", "/a"))
	assert.Equal(t, "https://h/a", resolveURL("https://h", "a"))
	assert.Equal(t, "http://other/a", resolveURL("https://h", "http://other/a"))
}
