package search

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// Kind is the value type of an optimizer option.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "integer"
	case KindFloat:
		return "number"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// OptionSpec documents one construction option of an optimizer.
type OptionSpec struct {
	Name    string
	Kind    Kind
	Default any
	// Range bounds numeric options inclusively when set.
	Range   *[2]float64
	Choices []string
	Doc     string
}

func between(lo, hi float64) *[2]float64 {
	return &[2]float64{lo, hi}
}

// Schema is the ordered option list of an optimizer. Positional arguments
// bind to options in schema order.
type Schema []OptionSpec

// Options holds resolved option values keyed by name.
type Options map[string]any

// Int returns an integer option; it panics on a name missing from the schema.
func (o Options) Int(name string) int {
	return o[name].(int)
}

// Float returns a numeric option
func (o Options) Float(name string) float64 {
	return o[name].(float64)
}

// String returns a string option
func (o Options) String(name string) string {
	return o[name].(string)
}

func (s Schema) lookup(name string) (OptionSpec, bool) {
	for _, spec := range s {
		if spec.Name == name {
			return spec, true
		}
	}
	return OptionSpec{}, false
}

// Names returns the option names in positional order
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, spec := range s {
		names[i] = spec.Name
	}
	return names
}

// Resolve binds positional and keyword arguments to the schema, checks types
// and ranges, and fills defaults.
func (s Schema) Resolve(optimizer string, args []any, kwargs map[string]any) (Options, error) {
	if len(args) > len(s) {
		return nil, &OptionError{
			Optimizer: optimizer,
			Reason:    fmt.Sprintf("too many positional arguments: got %d, accepts %d %v", len(args), len(s), s.Names()),
		}
	}

	given := make(map[string]any, len(args)+len(kwargs))
	for i, v := range args {
		given[s[i].Name] = v
	}
	for k, v := range kwargs {
		if _, ok := s.lookup(k); !ok {
			return nil, &OptionError{Optimizer: optimizer, Option: k, Reason: fmt.Sprintf("is not recognized (accepted: %v)", s.Names())}
		}
		if _, dup := given[k]; dup {
			return nil, &OptionError{Optimizer: optimizer, Option: k, Reason: "is given both positionally and by keyword"}
		}
		given[k] = v
	}

	out := make(Options, len(s))
	for _, spec := range s {
		raw, ok := given[spec.Name]
		if !ok {
			out[spec.Name] = spec.Default
			continue
		}
		v, err := spec.coerce(raw)
		if err != nil {
			return nil, &OptionError{Optimizer: optimizer, Option: spec.Name, Reason: err.Error()}
		}
		out[spec.Name] = v
	}
	return out, nil
}

func (spec OptionSpec) coerce(raw any) (any, error) {
	switch spec.Kind {
	case KindString:
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string, got %T", raw)
		}
		if len(spec.Choices) > 0 && !slices.Contains(spec.Choices, str) {
			return nil, fmt.Errorf("must be one of %v, got %q", spec.Choices, str)
		}
		return str, nil
	case KindInt:
		f, ok := number(raw)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("must be an integer, got %v", raw)
		}
		if err := spec.checkRange(f); err != nil {
			return nil, err
		}
		return int(f), nil
	case KindFloat:
		f, ok := number(raw)
		if !ok {
			return nil, fmt.Errorf("must be a number, got %v", raw)
		}
		if err := spec.checkRange(f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported option kind %v", spec.Kind)
	}
}

func (spec OptionSpec) checkRange(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("must be finite")
	}
	if spec.Range == nil {
		return nil
	}
	if f < spec.Range[0] || f > spec.Range[1] {
		return fmt.Errorf("must be in [%g, %g], got %g", spec.Range[0], spec.Range[1], f)
	}
	return nil
}

// number accepts the numeric types produced by encoding/json, yaml.v3 and structpb.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
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

// OptionError reports optimizer arguments that do not fit the schema.
type OptionError struct {
	Optimizer string
	Option    string
	Reason    string
}

func (e *OptionError) Error() string {
	if e.Option == "" {
		return fmt.Sprintf("optimizer %s: %s", e.Optimizer, e.Reason)
	}
	return fmt.Sprintf("optimizer %s: option %s %s", e.Optimizer, e.Option, e.Reason)
}
