package validator

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// codeKeys are looked up, in order, when extracting code from a map.
var codeKeys = []string{"code", "content", "output", "result", "text", "data"}

const maxExtractDepth = 4

// Coder is implemented by results that carry code.
type Coder interface {
	Code() string
}

// ExtractCode pulls a code string out of a task result. It accepts strings,
// byte slices, Coder and fmt.Stringer values, JSON objects, maps keyed by one
// of code, content, output, result, text or data, and structs (or pointers to
// them) with an exported field of one of those names. Containers are searched
// recursively.
func ExtractCode(v any) (string, bool) {
	return extract(v, 0)
}

func extract(v any, depth int) (string, bool) {
	if depth > maxExtractDepth || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(t, &decoded); err != nil {
			return string(t), true
		}
		return extract(decoded, depth+1)
	case Coder:
		return t.Code(), true
	case map[string]any:
		for _, k := range codeKeys {
			if inner, ok := t[k]; ok {
				if s, ok := extract(inner, depth+1); ok {
					return s, true
				}
			}
		}
		return "", false
	case map[string]string:
		for _, k := range codeKeys {
			if s, ok := t[k]; ok {
				return s, true
			}
		}
		return "", false
	case fmt.Stringer:
		return t.String(), true
	}
	return extractValue(reflect.ValueOf(v), depth)
}

// extractValue handles the shapes the type switch cannot name: pointers,
// structs and maps with string keys.
func extractValue(rv reflect.Value, depth int) (string, bool) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Struct:
		rt := rv.Type()
		for _, k := range codeKeys {
			for i := 0; i < rt.NumField(); i++ {
				f := rt.Field(i)
				if !f.IsExported() || !strings.EqualFold(f.Name, k) {
					continue
				}
				if s, ok := extract(rv.Field(i).Interface(), depth+1); ok {
					return s, true
				}
			}
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return "", false
		}
		for _, k := range codeKeys {
			inner := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
			if !inner.IsValid() {
				continue
			}
			if s, ok := extract(inner.Interface(), depth+1); ok {
				return s, true
			}
		}
	}
	return "", false
}
