package extract

import (
	"strconv"
	"strings"
)

// Coercers read values out of the loosely typed objects the cascade
// produces. Models frequently emit "true", "0.8", or a bare string where
// the schema asked for a typed value, so each coercer tolerates the
// string form as well.

func AsBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes":
			return true, true
		case "false", "no":
			return false, true
		}
	}
	return false, false
}

func AsNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func AsString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// AsStringList accepts a real list, a list of mixed values (non-strings
// skipped), or a single bare string treated as a one-item list.
func AsStringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := AsString(item); ok {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}, true
		}
	}
	return nil, false
}
