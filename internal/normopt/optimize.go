// Package normopt searches normative parameter assignments that maximize the
// alignment of a model's trajectories with a value, under optional constraints.
package normopt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/norm-optimizer/internal/alignment"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/model"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/search"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/logger"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/models"
)

// Problem is everything one optimization run needs.
type Problem struct {
	Model       model.Constructor
	ModelArgs   []any
	ModelKwargs map[string]any
	Value       model.ValueFunc

	Norms       models.NormSpace
	Lower       models.Bounds
	Upper       models.Bounds
	Constraints []models.ConstraintFunc
	LambdaConst float64

	Optimizer   string
	OptArgs     []any
	OptKwargs   map[string]any
	Termination map[string]any

	PathLength int
	PathSample int
	Workers    int
	Seed       int64
}

// Result is the best assignment found by a run.
type Result struct {
	Norms       models.Assignment `json:"norms"`
	Alignment   float64           `json:"algn"`
	Penalty     float64           `json:"penalty"`
	Epochs      int               `json:"epochs"`
	Evaluations int               `json:"evaluations"`
	StopReason  string            `json:"stop_reason"`
	Duration    time.Duration     `json:"-"`
}

// Optimizer runs Problems against an optimizer registry.
type Optimizer struct {
	registry *search.Registry
}

// New creates an Optimizer. A nil registry uses the built-in optimizers.
func New(registry *search.Registry) *Optimizer {
	if registry == nil {
		registry = search.DefaultRegistry()
	}
	return &Optimizer{registry: registry}
}

// Registry returns the optimizer registry used to build searches
func (o *Optimizer) Registry() *search.Registry {
	return o.registry
}

// Optimize validates p, searches the bounded norm space and returns the best
// assignment. The reported alignment is the penalized fitness of that assignment.
func (o *Optimizer) Optimize(ctx context.Context, p Problem) (*Result, error) {
	layout, lower, upper, err := Validate(p)
	if err != nil {
		return nil, err
	}

	opt, err := o.registry.New(p.Optimizer, p.OptArgs, p.OptKwargs)
	if err != nil {
		var optErr *search.OptionError
		if errors.As(err, &optErr) {
			return nil, &ValidationError{Field: "optimizer", Err: err}
		}
		return nil, err
	}
	term, err := search.ParseTermination(p.Termination)
	if err != nil {
		return nil, &ValidationError{Field: "term_dict", Err: err}
	}

	est, err := alignment.New(alignment.Config{
		Model:      p.Model,
		Args:       p.ModelArgs,
		Kwargs:     p.ModelKwargs,
		Value:      p.Value,
		PathLength: p.PathLength,
		PathSample: p.PathSample,
		Workers:    p.Workers,
		Seed:       p.Seed,
	})
	if err != nil {
		return nil, &ValidationError{Field: "alignment", Err: err}
	}

	fitness := func(ctx context.Context, x []float64) (float64, error) {
		norms := layout.Assignment(x)
		algn, err := est.Estimate(ctx, norms)
		if err != nil {
			return 0, err
		}
		return algn - p.LambdaConst*Penalty(p.Constraints, norms), nil
	}

	logger.Debug("optimization started",
		"optimizer", opt.Name(),
		"dimensions", layout.Dim(),
		"path_length", p.PathLength,
		"path_sample", p.PathSample,
		"seed", est.Seed(),
	)

	sol, err := opt.Solve(ctx, search.Problem{Lower: lower, Upper: upper, Fitness: fitness}, term)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opt.Name(), err)
	}

	best := layout.Assignment(sol.Position)
	res := &Result{
		Norms:       best,
		Alignment:   sol.Fitness,
		Penalty:     Penalty(p.Constraints, best),
		Epochs:      sol.Epochs,
		Evaluations: sol.Evaluations,
		StopReason:  sol.StopReason,
		Duration:    sol.Duration,
	}
	logger.Info("optimization finished",
		"optimizer", opt.Name(),
		"algn", res.Alignment,
		"epochs", res.Epochs,
		"evaluations", res.Evaluations,
		"stop_reason", res.StopReason,
		"duration", res.Duration,
	)
	return res, nil
}

// Penalty sums the constraint outputs for norms
func Penalty(constraints []models.ConstraintFunc, norms models.Assignment) float64 {
	total := 0.0
	for _, c := range constraints {
		total += c(norms)
	}
	return total
}

// Validate checks the parts of p that do not depend on the optimizer and
// returns the search layout with its bound vectors.
func Validate(p Problem) (models.Layout, []float64, []float64, error) {
	var layout models.Layout
	if p.Model == nil {
		return layout, nil, nil, &ValidationError{Field: "model", Err: errors.New("model constructor is required")}
	}
	if p.Value == nil {
		return layout, nil, nil, &ValidationError{Field: "value", Err: errors.New("value function is required")}
	}

	layout = models.NewLayout(p.Norms)
	if layout.Dim() == 0 {
		return layout, nil, nil, &ValidationError{Field: "norms", Err: errors.New("norm space declares no parameters")}
	}

	for _, side := range []struct {
		name   string
		bounds models.Bounds
	}{{"lower", p.Lower}, {"upper", p.Upper}} {
		if extra := layout.Undeclared(side.bounds); len(extra) > 0 {
			names := make([]string, len(extra))
			for i, c := range extra {
				names[i] = c.String()
			}
			return layout, nil, nil, &ValidationError{
				Field: side.name + "_bounds",
				Err:   fmt.Errorf("bounds given for undeclared parameters: %s", strings.Join(names, ", ")),
			}
		}
	}

	lower, err := layout.Vector(p.Lower, "lower")
	if err != nil {
		return layout, nil, nil, &ValidationError{Field: "lower_bounds", Err: err}
	}
	upper, err := layout.Vector(p.Upper, "upper")
	if err != nil {
		return layout, nil, nil, &ValidationError{Field: "upper_bounds", Err: err}
	}
	coords := layout.Coords()
	for i := range lower {
		if lower[i] > upper[i] {
			return layout, nil, nil, &ValidationError{
				Field: "bounds",
				Err:   fmt.Errorf("lower bound %g of %s exceeds upper bound %g", lower[i], coords[i], upper[i]),
			}
		}
	}

	if p.PathLength <= 0 {
		return layout, nil, nil, &ValidationError{Field: "path_length", Err: fmt.Errorf("must be positive, got %d", p.PathLength)}
	}
	if p.PathSample <= 0 {
		return layout, nil, nil, &ValidationError{Field: "path_sample", Err: fmt.Errorf("must be positive, got %d", p.PathSample)}
	}
	if p.LambdaConst < 0 || math.IsNaN(p.LambdaConst) || math.IsInf(p.LambdaConst, 0) {
		return layout, nil, nil, &ValidationError{Field: "lambda_const", Err: fmt.Errorf("must be a finite non-negative number, got %g", p.LambdaConst)}
	}
	return layout, lower, upper, nil
}

// ValidationError reports a problem that cannot be searched as configured.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
