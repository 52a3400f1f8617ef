package normd

import (
	"fmt"
	"sort"
	"sync"

	"github.com/GoSim-25-26J-441/norm-optimizer/internal/model"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/normopt"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/search"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/config"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/models"
)

// State is the content of the configuration holder.
type State struct {
	ModelName   string
	ModelArgs   []any
	ModelKwargs map[string]any
	Model       model.Constructor
	ValueName   string
	Value       model.ValueFunc

	Norms           models.NormSpace
	Lower           models.Bounds
	Upper           models.Bounds
	Constraints     []models.ConstraintFunc
	ConstraintNames []string
	LambdaConst     float64
	Workers         int
	Seed            int64

	OptimizerClass string
	OptArgs        []any
	OptKwargs      map[string]any
	Termination    map[string]any
	PathLength     int
	PathSample     int
}

// Problem turns the state into an optimization problem.
func (s State) Problem() normopt.Problem {
	return normopt.Problem{
		Model:       s.Model,
		ModelArgs:   s.ModelArgs,
		ModelKwargs: s.ModelKwargs,
		Value:       s.Value,
		Norms:       s.Norms,
		Lower:       s.Lower,
		Upper:       s.Upper,
		Constraints: s.Constraints,
		LambdaConst: s.LambdaConst,
		Optimizer:   s.OptimizerClass,
		OptArgs:     s.OptArgs,
		OptKwargs:   s.OptKwargs,
		Termination: s.Termination,
		PathLength:  s.PathLength,
		PathSample:  s.PathSample,
		Workers:     s.Workers,
		Seed:        s.Seed,
	}
}

func (s State) clone() State {
	out := s
	out.ModelArgs = cloneSlice(s.ModelArgs)
	out.ModelKwargs = cloneMap(s.ModelKwargs)
	out.Norms = s.Norms.Clone()
	out.Lower = s.Lower.Clone()
	out.Upper = s.Upper.Clone()
	out.Constraints = append([]models.ConstraintFunc(nil), s.Constraints...)
	out.ConstraintNames = append([]string(nil), s.ConstraintNames...)
	out.OptArgs = cloneSlice(s.OptArgs)
	out.OptKwargs = cloneMap(s.OptKwargs)
	out.Termination = cloneMap(s.Termination)
	return out
}

// Holder is the process-wide configuration shared by all handlers. Setters
// store what they are given; checking values is the caller's job.
type Holder struct {
	mu    sync.RWMutex
	state State
}

// NewHolder creates a holder with a copy of the initial state
func NewHolder(initial State) *Holder {
	return &Holder{state: initial.clone()}
}

// Snapshot returns a deep copy of the current state
func (h *Holder) Snapshot() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.clone()
}

// OptimizerClass returns the stored optimizer identifier
func (h *Holder) OptimizerClass() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.OptimizerClass
}

// Update runs fn on the stored state under the write lock. The state is
// left as fn leaves it even when fn returns an error, so fn must check
// before it writes.
func (h *Holder) Update(fn func(*State) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(&h.state)
}

// SetOptimizerClass replaces the optimizer identifier
func (h *Holder) SetOptimizerClass(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.OptimizerClass = id
}

// SetTermination replaces the termination dictionary
func (h *Holder) SetTermination(term map[string]any) {
	term = cloneMap(term)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.Termination = term
}

// SetPathLength replaces the number of steps per simulated path
func (h *Holder) SetPathLength(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.PathLength = n
}

// SetPathSample replaces the number of paths per alignment estimate
func (h *Holder) SetPathSample(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.PathSample = n
}

// BuildState resolves a loaded configuration against the model and optimizer
// registries.
func BuildState(cfg *config.Config, registry *model.Registry, optimizers *search.Registry) (State, error) {
	ctor, err := registry.Model(cfg.Model.Name)
	if err != nil {
		return State{}, fmt.Errorf("model: %w", err)
	}

	var (
		value     model.ValueFunc
		valueName string
	)
	if cfg.Value.Name != "" {
		value, err = registry.Value(cfg.Value.Name)
		valueName = cfg.Value.Name
	} else {
		value, err = registry.Aggregate(cfg.Value.Weights)
		valueName = weightsName(cfg.Value.Weights)
	}
	if err != nil {
		return State{}, fmt.Errorf("value: %w", err)
	}

	class, err := optimizers.Resolve(cfg.Optimizer.Class)
	if err != nil {
		return State{}, fmt.Errorf("optimizer: %w", err)
	}
	if _, err := optimizers.Options(class, cfg.Optimizer.Args, cfg.Optimizer.Kwargs); err != nil {
		return State{}, fmt.Errorf("optimizer: %w", err)
	}
	if _, err := search.ParseTermination(cfg.TermDict); err != nil {
		return State{}, fmt.Errorf("term_dict: %w", err)
	}

	state := State{
		ModelName:   cfg.Model.Name,
		ModelArgs:   cfg.Model.Args,
		ModelKwargs: cfg.Model.Kwargs,
		Model:       ctor,
		ValueName:   valueName,
		Value:       value,

		Norms:       models.NormSpace(cfg.Norms),
		Lower:       models.Bounds(cfg.LowerBounds),
		Upper:       models.Bounds(cfg.UpperBounds),
		LambdaConst: cfg.Lambda(),
		Workers:     cfg.Workers,
		Seed:        cfg.Seed,

		OptimizerClass: class,
		OptArgs:        cfg.Optimizer.Args,
		OptKwargs:      cfg.Optimizer.Kwargs,
		Termination:    cfg.TermDict,
		PathLength:     cfg.PathLength,
		PathSample:     cfg.PathSample,
	}
	for i, c := range cfg.Constraints {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("constraint_%d", i)
		}
		lc := models.LinearConstraint{
			Name:   name,
			Kind:   models.ConstraintKind(c.Kind),
			Coef:   models.Assignment(c.Coef),
			Offset: c.Offset,
		}
		state.Constraints = append(state.Constraints, lc.Func())
		state.ConstraintNames = append(state.ConstraintNames, name)
	}
	return state.clone(), nil
}

func weightsName(weights map[string]float64) string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)
	out := ""
	for i, name := range names {
		if i > 0 {
			out += "+"
		}
		out += fmt.Sprintf("%g*%s", weights[name], name)
	}
	return out
}

func cloneSlice(in []any) []any {
	if in == nil {
		return nil
	}
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = cloneValue(v)
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		return cloneSlice(t)
	case map[string]any:
		return cloneMap(t)
	default:
		return v
	}
}
