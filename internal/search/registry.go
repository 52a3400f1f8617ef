package search

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Canonical optimizer identifiers
const (
	IDGA  = "evolutionary_based.GA.BaseGA"
	IDDE  = "evolutionary_based.DE.OriginalDE"
	IDPSO = "swarm_based.PSO.OriginalPSO"
	IDHC  = "math_based.HC.OriginalHC"
	IDRS  = "random_based.RS.OriginalRS"
)

// DefaultOptimizer is used when no optimizer class is configured
const DefaultOptimizer = IDGA

// packagePrefix is accepted in front of canonical identifiers.
const packagePrefix = "mealpy."

// Builder turns resolved options into an optimizer
type Builder func(Options) (Optimizer, error)

// Spec describes one registered optimizer.
type Spec struct {
	ID      string
	Aliases []string
	Doc     string
	Schema  Schema
	Build   Builder
}

// Registry maps optimizer identifiers to their specs.
type Registry struct {
	mu      sync.RWMutex
	specs   map[string]Spec
	aliases map[string]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		specs:   make(map[string]Spec),
		aliases: make(map[string]string),
	}
}

// DefaultRegistry returns a registry holding the built-in optimizers
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, spec := range []Spec{
		{ID: IDGA, Aliases: []string{"GA", "BaseGA"}, Doc: "genetic algorithm", Schema: gaSchema, Build: newGA},
		{ID: IDDE, Aliases: []string{"DE", "OriginalDE"}, Doc: "differential evolution", Schema: deSchema, Build: newDE},
		{ID: IDPSO, Aliases: []string{"PSO", "OriginalPSO"}, Doc: "particle swarm optimization", Schema: psoSchema, Build: newPSO},
		{ID: IDHC, Aliases: []string{"HC", "OriginalHC"}, Doc: "hill climbing", Schema: hcSchema, Build: newHC},
		{ID: IDRS, Aliases: []string{"RS", "OriginalRS"}, Doc: "random search", Schema: rsSchema, Build: newRS},
	} {
		if err := r.Register(spec); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds an optimizer. Identifiers and aliases must be unique.
func (r *Registry) Register(spec Spec) error {
	if spec.ID == "" || spec.Build == nil {
		return fmt.Errorf("optimizer spec needs an id and a builder")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := append([]string{spec.ID}, spec.Aliases...)
	for _, name := range names {
		if _, taken := r.aliases[name]; taken {
			return fmt.Errorf("optimizer name %q is already registered", name)
		}
	}
	r.specs[spec.ID] = spec
	for _, name := range names {
		r.aliases[name] = spec.ID
	}
	return nil
}

// Resolve maps a client supplied name to its canonical identifier.
func (r *Registry) Resolve(name string) (string, error) {
	key := strings.TrimPrefix(strings.TrimSpace(name), packagePrefix)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := r.aliases[key]; ok {
		return id, nil
	}
	return "", &UnknownOptimizerError{Name: name, Known: r.idsLocked()}
}

// Spec returns the spec registered under name
func (r *Registry) Spec(name string) (Spec, error) {
	id, err := r.Resolve(name)
	if err != nil {
		return Spec{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.specs[id], nil
}

// Options resolves args and kwargs against the optimizer's schema.
func (r *Registry) Options(name string, args []any, kwargs map[string]any) (Options, error) {
	spec, err := r.Spec(name)
	if err != nil {
		return nil, err
	}
	return spec.Schema.Resolve(spec.ID, args, kwargs)
}

// New builds the optimizer registered under name
func (r *Registry) New(name string, args []any, kwargs map[string]any) (Optimizer, error) {
	spec, err := r.Spec(name)
	if err != nil {
		return nil, err
	}
	opts, err := spec.Schema.Resolve(spec.ID, args, kwargs)
	if err != nil {
		return nil, err
	}
	return spec.Build(opts)
}

// IDs returns the canonical identifiers in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idsLocked()
}

func (r *Registry) idsLocked() []string {
	ids := make([]string, 0, len(r.specs))
	for id := range r.specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UnknownOptimizerError is returned for names that match no registered optimizer.
type UnknownOptimizerError struct {
	Name  string
	Known []string
}

func (e *UnknownOptimizerError) Error() string {
	return fmt.Sprintf("unknown optimizer %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}
