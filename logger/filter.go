package logger

import (
	nethttp "net/http"
	"net/url"
	"strings"
)

const (
	// DefaultMaskValue replaces sensitive values in log output.
	DefaultMaskValue = "***"
	// DefaultMaxDepth bounds recursion into nested maps.
	DefaultMaxDepth = 8
)

// FilterConfig defines which fields are masked in logs.
type FilterConfig struct {
	// SensitiveFields holds field, header or query names to mask (case-insensitive).
	SensitiveFields []string
	MaskValue       string
}

// DefaultFilterConfig masks credentials commonly found in API calls.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"password", "passwd", "pwd",
			"secret", "api_key", "apikey", "x-api-key",
			"token", "access_token", "refresh_token",
			"auth", "authorization", "proxy-authorization",
			"cookie", "set-cookie",
			"credential", "credentials",
		},
		MaskValue: DefaultMaskValue,
	}
}

// SensitiveDataFilter masks sensitive values before they reach the log.
type SensitiveDataFilter struct {
	config    *FilterConfig
	sensitive map[string]struct{}
}

// NewSensitiveDataFilter creates a filter; a nil config uses DefaultFilterConfig.
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	sensitive := make(map[string]struct{}, len(config.SensitiveFields))
	for _, f := range config.SensitiveFields {
		sensitive[strings.ToLower(f)] = struct{}{}
	}
	return &SensitiveDataFilter{config: config, sensitive: sensitive}
}

// FilterString masks value when key is sensitive and strips credentials
// from URL values.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if f.isSensitiveField(key) {
		return f.maskString(value)
	}
	if f.isURL(value) {
		return f.maskURL(value)
	}
	return value
}

// FilterValue masks sensitive entries of headers, query values and maps.
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	return f.filterValue(key, value, DefaultMaxDepth)
}

// FilterFields filters a field map passed to WithFields.
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	return f.filterMap(fields, DefaultMaxDepth)
}

func (f *SensitiveDataFilter) filterValue(key string, value any, depth int) any {
	if f.isSensitiveField(key) {
		return f.config.MaskValue
	}
	if depth <= 0 {
		return value
	}

	switch v := value.(type) {
	case nethttp.Header:
		return f.filterMultiMap(v)
	case url.Values:
		return f.filterMultiMap(v)
	case map[string][]string:
		return f.filterMultiMap(v)
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, s := range v {
			out[k] = f.FilterString(k, s)
		}
		return out
	case map[string]any:
		return f.filterMap(v, depth)
	case string:
		return f.FilterString(key, v)
	default:
		return value
	}
}

func (f *SensitiveDataFilter) filterMap(m map[string]any, depth int) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = f.filterValue(k, v, depth-1)
	}
	return out
}

func (f *SensitiveDataFilter) filterMultiMap(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, vals := range m {
		if f.isSensitiveField(k) {
			out[k] = []string{f.config.MaskValue}
			continue
		}
		out[k] = vals
	}
	return out
}

func (f *SensitiveDataFilter) isSensitiveField(fieldName string) bool {
	_, ok := f.sensitive[strings.ToLower(fieldName)]
	return ok
}

// maskString keeps a short prefix of long values so related entries can be correlated.
func (f *SensitiveDataFilter) maskString(value string) string {
	if value == "" {
		return value
	}
	if len(value) <= 8 {
		return f.config.MaskValue
	}
	return value[:4] + f.config.MaskValue
}

func (f *SensitiveDataFilter) isURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

// maskURL hides user info and sensitive query parameters.
func (f *SensitiveDataFilter) maskURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	changed := false
	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), f.config.MaskValue)
			changed = true
		}
	}

	if parsed.RawQuery != "" {
		q := parsed.Query()
		for k := range q {
			if f.isSensitiveField(k) {
				q.Set(k, f.config.MaskValue)
				changed = true
			}
		}
		if changed {
			parsed.RawQuery = q.Encode()
		}
	}

	if !changed {
		return raw
	}
	return parsed.String()
}
