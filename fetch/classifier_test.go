package fetch

import (
	"context"
	nethttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-apifetch/api"
	"github.com/gaborage/go-apifetch/validation"
)

type item struct {
	ID   int    `json:"id" validate:"required"`
	Name string `json:"name"`
}

type problem struct {
	Title string `json:"title"`
}

func raw(status int, contentType, body string) *RawResponse {
	h := nethttp.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &RawResponse{StatusCode: status, Headers: h, Body: []byte(body)}
}

func itemDescriptor() api.Descriptor {
	return api.Descriptor{
		Name:         "get-item",
		URL:          "/items/{id}",
		ResponseBody: item{},
		ErrorBody:    problem{},
	}.WithDefaults()
}

func TestClassifySuccessDecodesPrototype(t *testing.T) {
	c := NewClassifier(nil, nil)

	result, err := c.Classify(context.Background(), itemDescriptor(), nil,
		raw(200, "application/json", `{"id":1,"name":"gear"}`), validation.ModeHard)

	require.NoError(t, err)
	assert.Equal(t, api.KindOK, result.Kind)
	assert.Equal(t, item{ID: 1, Name: "gear"}, result.Body)
	assert.Equal(t, "application/json", result.Headers.Get("Content-Type"))
}

func TestClassifyErrorStatusDecodesErrorPrototype(t *testing.T) {
	c := NewClassifier(nil, nil)

	result, err := c.Classify(context.Background(), itemDescriptor(), nil,
		raw(404, "application/problem+json", `{"title":"not found"}`), validation.ModeHard)

	require.NoError(t, err)
	assert.Equal(t, api.KindErrorResponse, result.Kind)
	assert.Equal(t, 404, result.Status)
	assert.Equal(t, problem{Title: "not found"}, result.Body)
	assert.Empty(t, result.Message)
}

func TestClassifyUndeclaredStatus(t *testing.T) {
	c := NewClassifier(nil, nil)
	desc := itemDescriptor()
	desc.SuccessStatuses = []int{200}
	desc.ErrorStatuses = []int{400}

	result, err := c.Classify(context.Background(), desc, nil, raw(418, "text/plain", "teapot"), validation.ModeNone)

	require.NoError(t, err)
	assert.Equal(t, api.KindErrorResponse, result.Kind)
	assert.Equal(t, []byte("teapot"), result.Body)
	assert.Equal(t, "unexpected status 418 for get-item", result.Message)
}

func TestClassifyDecodeFailure(t *testing.T) {
	c := NewClassifier(nil, nil)

	result, err := c.Classify(context.Background(), itemDescriptor(), nil,
		raw(200, "application/json", `{"id":"not-a-number"}`), validation.ModeNone)

	require.NoError(t, err)
	assert.Equal(t, api.KindErrorResponse, result.Kind)
	assert.Equal(t, []byte(`{"id":"not-a-number"}`), result.Body)
	assert.Contains(t, result.Message, "failed to decode response body for get-item")
}

func TestClassifyValidationModes(t *testing.T) {
	c := NewClassifier(nil, nil)
	body := raw(200, "application/json", `{"name":"no id"}`)

	hard, err := c.Classify(context.Background(), itemDescriptor(), nil, body, validation.ModeHard)
	require.NoError(t, err)
	assert.Equal(t, api.KindErrorResponse, hard.Kind)
	assert.Equal(t, item{Name: "no id"}, hard.Body)
	assert.Contains(t, hard.Message, "response validation failed")

	soft, err := c.Classify(context.Background(), itemDescriptor(), nil, body, validation.ModeSoft)
	require.NoError(t, err)
	assert.Equal(t, api.KindOK, soft.Kind)

	none, err := c.Classify(context.Background(), itemDescriptor(), nil, body, validation.ModeNone)
	require.NoError(t, err)
	assert.Equal(t, api.KindOK, none.Kind)
}

func TestClassifyEmptyJSONBody(t *testing.T) {
	c := NewClassifier(nil, nil)

	result, err := c.Classify(context.Background(), itemDescriptor(), nil, raw(204, "", ""), validation.ModeHard)

	require.NoError(t, err)
	assert.Equal(t, api.KindOK, result.Kind)
	assert.Nil(t, result.Body)
}

func TestClassifyWithoutPrototypeDecodesGeneric(t *testing.T) {
	c := NewClassifier(nil, nil)
	desc := api.Descriptor{URL: "/any"}.WithDefaults()

	result, err := c.Classify(context.Background(), desc, nil, raw(200, "application/json", `{"n":1}`), validation.ModeHard)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(1)}, result.Body)
}

func TestClassifyResponseTypes(t *testing.T) {
	tests := []struct {
		name         string
		responseType api.ResponseType
		contentType  string
		want         any
	}{
		{name: "text", responseType: api.ResponseTypeText, contentType: "application/json", want: `{"n":1}`},
		{name: "binary", responseType: api.ResponseTypeBinary, contentType: "application/json", want: []byte(`{"n":1}`)},
		{name: "dynamic json", responseType: api.ResponseTypeDynamic, contentType: "application/vnd.api+json", want: map[string]any{"n": float64(1)}},
		{name: "dynamic text", responseType: api.ResponseTypeDynamic, contentType: "text/plain; charset=utf-8", want: `{"n":1}`},
		{name: "dynamic unknown", responseType: api.ResponseTypeDynamic, contentType: "", want: []byte(`{"n":1}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(nil, nil)
			desc := api.Descriptor{URL: "/x", ResponseType: tt.responseType}.WithDefaults()

			result, err := c.Classify(context.Background(), desc, nil, raw(200, tt.contentType, `{"n":1}`), validation.ModeHard)

			require.NoError(t, err)
			assert.Equal(t, api.KindOK, result.Kind)
			assert.Equal(t, tt.want, result.Body)
		})
	}
}
