package validation

import (
	"reflect"
	"strings"
	"sync"
)

// Parameter locations recognised on request struct fields.
const (
	LocationPath   = "path"
	LocationQuery  = "query"
	LocationHeader = "header"
	LocationBody   = "body"
)

// TagInfo describes how one exported request struct field is sent.
type TagInfo struct {
	Name      string // Go field name
	Index     int    // field index within the struct
	JSONName  string // JSON field name (from json tag)
	Location  string // path, query, header or body
	ParamName string // name for path/query/header params
	OmitEmpty bool   // json or param tag carries omitempty
	Required  bool
}

var tagCache sync.Map // reflect.Type -> []TagInfo

// ParseRequestTags extracts parameter metadata from a request struct type.
//
// Fields tagged param, query or header are sent in that location; every other
// exported field belongs to the JSON body. Results are cached per type.
func ParseRequestTags(t reflect.Type) []TagInfo {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	if cached, ok := tagCache.Load(t); ok {
		return cached.([]TagInfo)
	}

	var tags []TagInfo
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		info := TagInfo{Name: field.Name, Index: i}

		if json := field.Tag.Get("json"); json != "" {
			parts := strings.Split(json, ",")
			info.JSONName = parts[0]
			info.OmitEmpty = hasOption(parts[1:], "omitempty")
		}

		info.Location, info.ParamName = parseParameterInfo(field.Tag)
		if info.Location != LocationBody {
			parts := strings.Split(info.ParamName, ",")
			info.ParamName = parts[0]
			info.OmitEmpty = info.OmitEmpty || hasOption(parts[1:], "omitempty")
		}

		info.Required = isFieldRequired(field.Tag.Get("validate"), info)
		tags = append(tags, info)
	}

	tagCache.Store(t, tags)
	return tags
}

// HasBody reports whether any field belongs to the body.
func HasBody(tags []TagInfo) bool {
	for _, tag := range tags {
		if tag.Location == LocationBody && tag.JSONName != "-" {
			return true
		}
	}
	return false
}

func parseParameterInfo(tag reflect.StructTag) (location, name string) {
	if param := tag.Get("param"); param != "" {
		return LocationPath, param
	}
	if query := tag.Get("query"); query != "" {
		return LocationQuery, query
	}
	if header := tag.Get("header"); header != "" {
		return LocationHeader, header
	}
	return LocationBody, ""
}

func isFieldRequired(validate string, info TagInfo) bool {
	constraints := strings.Split(validate, ",")
	if hasOption(constraints, "omitempty") || info.OmitEmpty {
		return false
	}
	if hasOption(constraints, "required") {
		return true
	}
	// Path parameters are always required.
	return info.Location == LocationPath
}

func hasOption(parts []string, option string) bool {
	for _, part := range parts {
		if strings.TrimSpace(part) == option {
			return true
		}
	}
	return false
}
