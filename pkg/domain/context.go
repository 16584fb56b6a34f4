package domain

import (
	"encoding/json"
	"fmt"
)

// Context holds the accumulated conversation state exchanged with the service.
// Values must be JSON-compatible: nil, bool, numbers, string, []any and map[string]any.
type Context map[string]any

// Clone returns a deep structural copy of the context.
// A nil context clones into an empty, non-nil one.
// Values outside the JSON kinds are rejected with ErrUnsupportedValue.
func (c Context) Clone() (Context, error) {
	out := make(Context, len(c))
	for k, v := range c {
		cv, err := cloneValue(v)
		if err != nil {
			return nil, fmt.Errorf("context key %q: %w", k, err)
		}
		out[k] = cv
	}
	return out, nil
}

// MustClone is Clone for contexts already known to be JSON-compatible.
// It panics on unsupported values.
func (c Context) MustClone() Context {
	out, err := c.Clone()
	if err != nil {
		panic(err)
	}
	return out
}

func cloneValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool, string, json.Number:
		return val, nil
	case float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return val, nil
	case []any:
		if val == nil {
			return []any(nil), nil
		}
		out := make([]any, len(val))
		for i, item := range val {
			cv, err := cloneValue(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = cv
		}
		return out, nil
	case map[string]any:
		if val == nil {
			return map[string]any(nil), nil
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			cv, err := cloneValue(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = cv
		}
		return out, nil
	case Context:
		if val == nil {
			return Context(nil), nil
		}
		return val.Clone()
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}
