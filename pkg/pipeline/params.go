package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParameterError reports an invalid run parameter.
type ParameterError struct {
	Param   string
	Message string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Message)
}

func stringListParam(params map[string]any, key string, def []string) ([]string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}

	var items []string
	switch v := raw.(type) {
	case []string:
		items = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &ParameterError{Param: key, Message: "must be a list of strings"}
			}
			items = append(items, s)
		}
	case string:
		items = strings.Split(v, ",")
	default:
		return nil, &ParameterError{Param: key, Message: "must be a list of strings"}
	}

	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def, nil
	}
	return out, nil
}

func intParam(params map[string]any, key string, def, lo, hi int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}

	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, &ParameterError{Param: key, Message: "must be an integer"}
		}
		n = int(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, &ParameterError{Param: key, Message: "must be an integer"}
		}
		n = int(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, &ParameterError{Param: key, Message: "must be an integer"}
		}
		n = i
	default:
		return 0, &ParameterError{Param: key, Message: "must be an integer"}
	}

	if n < lo || n > hi {
		return 0, &ParameterError{Param: key, Message: fmt.Sprintf("must be between %d and %d", lo, hi)}
	}
	return n, nil
}

func boolParam(params map[string]any, key string, def bool) (bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, &ParameterError{Param: key, Message: "must be a boolean"}
		}
		return b, nil
	default:
		return false, &ParameterError{Param: key, Message: "must be a boolean"}
	}
}
