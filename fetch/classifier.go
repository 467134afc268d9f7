package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"reflect"
	"strings"

	"github.com/gaborage/go-apifetch/api"
	"github.com/gaborage/go-apifetch/logger"
	"github.com/gaborage/go-apifetch/validation"
)

// DefaultClassifier decodes bodies according to the descriptor's response
// type and shape prototypes, then validates them under the given mode.
type DefaultClassifier struct {
	Validator *validation.Validator
	Logger    logger.Logger
}

// NewClassifier creates a DefaultClassifier.
func NewClassifier(v *validation.Validator, log logger.Logger) *DefaultClassifier {
	if v == nil {
		v = validation.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DefaultClassifier{Validator: v, Logger: log}
}

// Classify implements Classifier.
func (c *DefaultClassifier) Classify(_ context.Context, desc api.Descriptor, _ any, raw *RawResponse, mode validation.Mode) (*api.Result, error) {
	status := raw.StatusCode

	switch {
	case desc.IsSuccessStatus(status):
		body, msg := c.decode(desc, desc.ResponseBody, raw, mode)
		if msg != "" {
			return api.ErrorResponse(status, raw.Headers, body, msg), nil
		}
		return api.OK(status, raw.Headers, body), nil
	case desc.IsErrorStatus(status):
		body, msg := c.decode(desc, desc.ErrorBody, raw, mode)
		return api.ErrorResponse(status, raw.Headers, body, msg), nil
	default:
		// Undeclared statuses are rejected regardless of mode.
		return api.ErrorResponse(status, raw.Headers, raw.Body,
			fmt.Sprintf("unexpected status %d for %s", status, desc)), nil
	}
}

// decode returns the decoded body, or the raw bytes and a message when the
// body could not be decoded or failed hard validation.
func (c *DefaultClassifier) decode(desc api.Descriptor, proto any, raw *RawResponse, mode validation.Mode) (any, string) {
	rt := desc.ResponseType
	if rt == "" {
		rt = api.ResponseTypeJSON
	}
	if rt == api.ResponseTypeDynamic {
		rt = responseTypeFromContentType(raw.Headers.Get("Content-Type"))
	}

	var body any
	switch rt {
	case api.ResponseTypeText:
		body = string(raw.Body)
	case api.ResponseTypeBinary:
		body = raw.Body
	default:
		if len(raw.Body) == 0 {
			return nil, ""
		}
		decoded, err := decodeJSON(raw.Body, proto)
		if err != nil {
			return raw.Body, fmt.Sprintf("failed to decode response body for %s: %v", desc, err)
		}
		body = decoded
	}

	if err := c.Validator.Check(mode, body); err != nil {
		if mode == validation.ModeHard {
			return body, fmt.Sprintf("response validation failed for %s: %v", desc, err)
		}
		c.Logger.Warn().
			Str("endpoint", desc.String()).
			Int("status", raw.StatusCode).
			Err(err).
			Msg("Response failed soft validation")
	}
	return body, ""
}

func decodeJSON(data []byte, proto any) (any, error) {
	t := reflect.TypeOf(proto)
	if t == nil {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func responseTypeFromContentType(contentType string) api.ResponseType {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return api.ResponseTypeBinary
	}
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return api.ResponseTypeJSON
	case strings.HasPrefix(mediaType, "text/"):
		return api.ResponseTypeText
	default:
		return api.ResponseTypeBinary
	}
}
