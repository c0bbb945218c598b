package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// Args is the decoded arguments object of a tools/call request.
// Schema validation runs before handlers, so accessors only need to cope with absent keys
// and the usual JSON number representations.
type Args map[string]any

// ValidationError represents a missing or malformed argument
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid argument '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid argument '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Has reports whether key is present and non-null
func (a Args) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

// String returns the string value of key, or "" when absent
func (a Args) String(key string) string {
	return a.StringOr(key, "")
}

// StringOr returns the string value of key, or def when absent or empty
func (a Args) StringOr(key, def string) string {
	switch v := a[key].(type) {
	case string:
		if v != "" {
			return v
		}
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return def
}

// RequireString returns the value of key, failing when it is absent or blank
func (a Args) RequireString(key string) (string, error) {
	s := strings.TrimSpace(a.String(key))
	if s == "" {
		return "", &ValidationError{Field: key, Message: "is required"}
	}
	return a.String(key), nil
}

// Float returns the numeric value of key, or def
func (a Args) Float(key string, def float64) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// Int returns the integer value of key, or def
func (a Args) Int(key string, def int) int {
	if !a.Has(key) {
		return def
	}
	return int(a.Float(key, float64(def)))
}

// Bool returns the boolean value of key, or def
func (a Args) Bool(key string, def bool) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Strings returns the value of key as a string slice. A single string is
// accepted and split on commas.
func (a Args) Strings(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			out = append(out, Stringify(item))
		}
		return out
	case string:
		var out []string
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

// Floats returns the value of key as a float slice, skipping non-numeric entries
func (a Args) Floats(key string) []float64 {
	items, _ := a[key].([]any)
	out := make([]float64, 0, len(items))
	for _, item := range items {
		if f, ok := ToFloat(item); ok {
			out = append(out, f)
		}
	}
	return out
}

// Rows returns a two-dimensional array argument. A flat array becomes a single row.
func (a Args) Rows(key string) [][]any {
	items, _ := a[key].([]any)
	rows := make([][]any, 0, len(items))
	for _, item := range items {
		switch row := item.(type) {
		case []any:
			rows = append(rows, row)
		default:
			rows = append(rows, []any{row})
		}
	}
	return rows
}

// Map returns a nested object argument as Args, never nil
func (a Args) Map(key string) Args {
	if m, ok := a[key].(map[string]any); ok {
		return Args(m)
	}
	return Args{}
}

// Maps returns an array of objects, skipping non-object entries
func (a Args) Maps(key string) []Args {
	items, _ := a[key].([]any)
	out := make([]Args, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Args(m))
		}
	}
	return out
}

// StringMap returns an object argument with every value stringified
func (a Args) StringMap(key string) map[string]string {
	m, _ := a[key].(map[string]any)
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = Stringify(v)
	}
	return out
}

// ToFloat converts a JSON scalar to float64
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// Stringify renders a JSON scalar the way a spreadsheet user would expect
func Stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(s)
	}
}
