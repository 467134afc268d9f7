package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/gaborage/go-apifetch/api"
	"github.com/gaborage/go-apifetch/logger"
	"github.com/gaborage/go-apifetch/validation"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}/]+)\}`)

// DefaultMaterializer builds transport inputs from *api.Request values or
// from structs tagged with param, query, header and json.
type DefaultMaterializer struct {
	// BaseURL prefixes relative descriptor URLs.
	BaseURL   string
	Validator *validation.Validator
	Logger    logger.Logger
}

// NewMaterializer creates a DefaultMaterializer.
func NewMaterializer(baseURL string, v *validation.Validator, log logger.Logger) *DefaultMaterializer {
	if v == nil {
		v = validation.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DefaultMaterializer{BaseURL: baseURL, Validator: v, Logger: log}
}

// Materialize implements Materializer.
func (m *DefaultMaterializer) Materialize(_ context.Context, desc api.Descriptor, req any, mode validation.Mode) (*Materialized, error) {
	parts, err := m.extract(req)
	if err != nil {
		return nil, err
	}

	// Dynamic requests carry their typed value in Body.
	subject := req
	switch req.(type) {
	case *api.Request, api.Request:
		subject = parts.Body
	}

	if err := m.Validator.Check(mode, subject); err != nil {
		if mode == validation.ModeHard {
			return nil, NewMaterializationError(fmt.Sprintf("request validation failed for %s", desc), err)
		}
		m.Logger.Warn().
			Str("endpoint", desc.String()).
			Err(err).
			Msg("Request failed soft validation")
	}

	target, err := m.buildURL(desc.URL, parts.Params, parts.Query)
	if err != nil {
		return nil, err
	}

	headers := nethttp.Header{}
	for k, v := range parts.Headers {
		headers.Set(k, v)
	}

	body, contentType, err := encodeBody(desc.RequestBodyType, parts.Body)
	if err != nil {
		return nil, err
	}
	if contentType != "" && headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", contentType)
	}

	return &Materialized{URL: target, Headers: headers, Body: body}, nil
}

// extract normalises req into an api.Request.
func (m *DefaultMaterializer) extract(req any) (*api.Request, error) {
	switch r := req.(type) {
	case nil:
		return &api.Request{}, nil
	case *api.Request:
		if r == nil {
			return &api.Request{}, nil
		}
		return r, nil
	case api.Request:
		return &r, nil
	}

	rv := reflect.ValueOf(req)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return &api.Request{}, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, NewMaterializationError(fmt.Sprintf("unsupported request type %T", req), nil)
	}

	tags := validation.ParseRequestTags(rv.Type())
	out := &api.Request{Headers: map[string]string{}, Params: map[string]string{}, Query: url.Values{}}
	body := map[string]any{}

	for _, tag := range tags {
		fv := rv.Field(tag.Index)
		switch tag.Location {
		case validation.LocationPath:
			if s, ok := stringify(fv); ok {
				out.Params[tag.ParamName] = s
			}
		case validation.LocationQuery:
			if tag.OmitEmpty && fv.IsZero() {
				continue
			}
			out.Query[tag.ParamName] = stringifyAll(fv)
		case validation.LocationHeader:
			if s, ok := stringify(fv); ok && s != "" {
				out.Headers[tag.ParamName] = s
			}
		default:
			if tag.JSONName == "-" || (tag.OmitEmpty && fv.IsZero()) {
				continue
			}
			name := tag.JSONName
			if name == "" {
				name = tag.Name
			}
			body[name] = fv.Interface()
		}
	}

	if validation.HasBody(tags) {
		out.Body = body
	}
	return out, nil
}

func (m *DefaultMaterializer) buildURL(template string, params map[string]string, query url.Values) (string, error) {
	var missing []string
	path := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		v, ok := params[name]
		if !ok || v == "" {
			missing = append(missing, name)
			return match
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return "", NewMaterializationError(fmt.Sprintf("missing path parameter(s): %s", strings.Join(missing, ", ")), nil)
	}

	path = resolveURL(m.BaseURL, path)

	u, err := url.Parse(path)
	if err != nil {
		return "", NewMaterializationError("invalid url", err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vals := range query {
			for _, v := range vals {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func encodeBody(bodyType api.BodyType, body any) ([]byte, string, error) {
	if body == nil {
		return nil, "", nil
	}

	switch bodyType {
	case api.BodyTypeText:
		switch b := body.(type) {
		case string:
			return []byte(b), "text/plain; charset=utf-8", nil
		case []byte:
			return b, "text/plain; charset=utf-8", nil
		}
		return nil, "", NewMaterializationError(fmt.Sprintf("text body must be a string, got %T", body), nil)
	case api.BodyTypeBinary:
		if b, ok := body.([]byte); ok {
			return b, "application/octet-stream", nil
		}
		return nil, "", NewMaterializationError(fmt.Sprintf("binary body must be []byte, got %T", body), nil)
	case api.BodyTypeForm:
		values, err := formValues(body)
		if err != nil {
			return nil, "", err
		}
		return []byte(values.Encode()), "application/x-www-form-urlencoded", nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", NewMaterializationError("failed to encode JSON body", err)
		}
		return data, "application/json", nil
	}
}

func formValues(body any) (url.Values, error) {
	switch b := body.(type) {
	case url.Values:
		return b, nil
	case map[string]string:
		v := url.Values{}
		for k, s := range b {
			v.Set(k, s)
		}
		return v, nil
	case map[string]any:
		v := url.Values{}
		for k, item := range b {
			v[k] = stringifyAll(reflect.ValueOf(item))
		}
		return v, nil
	}
	return nil, NewMaterializationError(fmt.Sprintf("form body must be a map, got %T", body), nil)
}

// stringify renders scalar values for paths and headers.
func stringify(v reflect.Value) (string, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String(), true
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), true
	default:
		return fmt.Sprint(v.Interface()), true
	}
}

// stringifyAll renders a scalar or a slice of scalars for query strings.
func stringifyAll(v reflect.Value) []string {
	if !v.IsValid() {
		return nil
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		out := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			if s, ok := stringify(v.Index(i)); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := stringify(v); ok {
		return []string{s}
	}
	return nil
}
