package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// argReader reads construction arguments, positional first and keyword second.
type argReader struct {
	args   []any
	kwargs map[string]any
	used   map[string]bool
}

func newArgReader(args []any, kwargs map[string]any) *argReader {
	return &argReader{args: args, kwargs: kwargs, used: make(map[string]bool)}
}

func (a *argReader) float(pos int, name string, def float64) (float64, error) {
	raw, ok := a.lookup(pos, name)
	if !ok {
		return def, nil
	}
	v, ok := toFloat(raw)
	if !ok {
		return 0, fmt.Errorf("argument %s must be a number, got %T", name, raw)
	}
	return v, nil
}

func (a *argReader) int(pos int, name string, def int) (int, error) {
	raw, ok := a.lookup(pos, name)
	if !ok {
		return def, nil
	}
	v, ok := toFloat(raw)
	if !ok || v != math.Trunc(v) {
		return 0, fmt.Errorf("argument %s must be an integer, got %v", name, raw)
	}
	return int(v), nil
}

func (a *argReader) lookup(pos int, name string) (any, bool) {
	a.used[name] = true
	// keyword wins when both forms are given
	if v, ok := a.kwargs[name]; ok {
		return v, true
	}
	if pos >= 0 && pos < len(a.args) {
		return a.args[pos], true
	}
	return nil, false
}

// unknown reports keyword arguments never read and surplus positional ones.
func (a *argReader) unknown(maxPositional int) error {
	if len(a.args) > maxPositional {
		return fmt.Errorf("too many positional arguments: got %d, accepts %d", len(a.args), maxPositional)
	}
	for k := range a.kwargs {
		if !a.used[k] {
			return fmt.Errorf("unknown keyword argument %q", k)
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
