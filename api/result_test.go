package api

import (
	nethttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultVariants(t *testing.T) {
	headers := nethttp.Header{"X-Test": []string{"1"}}

	t.Run("ok", func(t *testing.T) {
		r := OK(200, headers, widget{Name: "gear"})
		assert.True(t, r.OK())

		resp, ok := r.Response()
		require.True(t, ok)
		assert.Equal(t, 200, resp.Status)
		assert.Equal(t, widget{Name: "gear"}, resp.Body)

		_, failed := r.Failure()
		assert.False(t, failed)
	})

	t.Run("error response", func(t *testing.T) {
		r := ErrorResponse(503, headers, apiError{Code: "busy"}, "")
		assert.False(t, r.OK())

		_, ok := r.Response()
		assert.False(t, ok)

		f, failed := r.Failure()
		require.True(t, failed)
		assert.True(t, f.HasStatus)
		assert.Equal(t, 503, f.Status)
		assert.Equal(t, apiError{Code: "busy"}, f.Body)
	})

	t.Run("invalid", func(t *testing.T) {
		r := Invalid("missing path parameter: id")

		f, failed := r.Failure()
		require.True(t, failed)
		assert.False(t, f.HasStatus)
		assert.Equal(t, 0, f.Status)
		assert.Equal(t, "missing path parameter: id", f.Message)
	})

	t.Run("nil result", func(t *testing.T) {
		var r *Result
		assert.False(t, r.OK())
		_, failed := r.Failure()
		assert.False(t, failed)
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ok", KindOK.String())
	assert.Equal(t, "error_response", KindErrorResponse.String())
	assert.Equal(t, "invalid", KindInvalid.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
