package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widgetBody struct {
	Name  string `json:"name" validate:"required"`
	Kind  string `json:"kind,omitempty" validate:"omitempty,oneof=gear bolt"`
	Media string `json:"media,omitempty" validate:"media_type"`
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeHard, false},
		{"hard", ModeHard, false},
		{" Soft ", ModeSoft, false},
		{"none", ModeNone, false},
		{"strict", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeOr(t *testing.T) {
	assert.Equal(t, ModeSoft, Mode("").Or(ModeSoft))
	assert.Equal(t, ModeNone, ModeNone.Or(ModeSoft))
}

func TestValidatorCheck(t *testing.T) {
	v := New()

	t.Run("valid struct", func(t *testing.T) {
		assert.NoError(t, v.Check(ModeHard, widgetBody{Name: "gear", Kind: "gear"}))
	})

	t.Run("missing required field", func(t *testing.T) {
		err := v.Check(ModeHard, &widgetBody{})
		require.Error(t, err)

		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		require.Len(t, ve.Errors, 1)
		assert.Equal(t, "name", ve.Errors[0].Field)
		assert.Equal(t, "validation failed: name is required", err.Error())
	})

	t.Run("soft mode still reports", func(t *testing.T) {
		assert.Error(t, v.Check(ModeSoft, widgetBody{}))
	})

	t.Run("none mode skips", func(t *testing.T) {
		assert.NoError(t, v.Check(ModeNone, widgetBody{}))
	})

	t.Run("custom media type rule", func(t *testing.T) {
		assert.NoError(t, v.Check(ModeHard, widgetBody{Name: "gear", Media: "application/json; charset=utf-8"}))
		assert.Error(t, v.Check(ModeHard, widgetBody{Name: "gear", Media: "json"}))
	})

	t.Run("slice of structs", func(t *testing.T) {
		err := v.Check(ModeHard, []widgetBody{{Name: "ok"}, {Kind: "nut"}})
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		require.Len(t, ve.Errors, 2)
		assert.Equal(t, "[1].name", ve.Errors[0].Field)
		assert.Contains(t, err.Error(), "2 errors")
	})

	t.Run("non struct values pass", func(t *testing.T) {
		assert.NoError(t, v.Check(ModeHard, map[string]any{"name": ""}))
		assert.NoError(t, v.Check(ModeHard, "text"))
		assert.NoError(t, v.Check(ModeHard, nil))

		var nilPtr *widgetBody
		assert.NoError(t, v.Check(ModeHard, nilPtr))
	})
}
