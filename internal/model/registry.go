package model

import (
	"fmt"
	"sort"
	"sync"

	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/models"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/utils"
)

// Model is an agent-based model whose evolution is governed by a normative
// system. One Step advances the model by one transition under norms.
type Model interface {
	Step(norms models.Assignment) error
}

// Constructor builds a fresh model instance. rng is owned by the instance.
type Constructor func(args []any, kwargs map[string]any, rng *utils.RandSource) (Model, error)

// ValueFunc scores the current state of a model with respect to a value.
type ValueFunc func(Model) (float64, error)

// Registry maps model and value names (as written in configuration) to code.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Constructor
	values map[string]ValueFunc
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]Constructor),
		values: make(map[string]ValueFunc),
	}
}

// DefaultRegistry returns a registry with the built-in models and values.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterModel(TaxModelName, NewTaxModel)
	r.RegisterValue(ValueEquality, Equality)
	r.RegisterValue(ValueFairness, Fairness)
	r.RegisterValue(ValueProsperity, Prosperity)
	return r
}

// RegisterModel adds or replaces a model constructor
func (r *Registry) RegisterModel(name string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[name] = c
}

// RegisterValue adds or replaces a value function
func (r *Registry) RegisterValue(name string, v ValueFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name] = v
}

// Model looks up a model constructor by name
func (r *Registry) Model(name string) (Constructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.models[name]
	if !ok {
		return nil, &UnknownNameError{Kind: "model", Name: name, Known: sortedKeys(r.models)}
	}
	return c, nil
}

// Value looks up a value function by name
func (r *Registry) Value(name string) (ValueFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[name]
	if !ok {
		return nil, &UnknownNameError{Kind: "value", Name: name, Known: sortedKeys(r.values)}
	}
	return v, nil
}

// Aggregate builds the weighted sum of registered values, normalized by the
// total absolute weight so that aggregated scores keep the range of their parts.
func (r *Registry) Aggregate(weights map[string]float64) (ValueFunc, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("at least one value weight is required")
	}
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	fns := make([]ValueFunc, len(names))
	ws := make([]float64, len(names))
	total := 0.0
	for i, name := range names {
		fn, err := r.Value(name)
		if err != nil {
			return nil, err
		}
		fns[i] = fn
		ws[i] = weights[name]
		if ws[i] < 0 {
			total -= ws[i]
		} else {
			total += ws[i]
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("value weights sum to zero")
	}

	return func(m Model) (float64, error) {
		score := 0.0
		for i, fn := range fns {
			v, err := fn(m)
			if err != nil {
				return 0, fmt.Errorf("value %s: %w", names[i], err)
			}
			score += ws[i] * v
		}
		return score / total, nil
	}, nil
}

// Models lists registered model names
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.models)
}

// Values lists registered value names
func (r *Registry) Values() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.values)
}

// UnknownNameError indicates a model or value name with no registration
type UnknownNameError struct {
	Kind  string
	Name  string
	Known []string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("unknown %s %q (known: %v)", e.Kind, e.Name, e.Known)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
