package normopt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/norm-optimizer/internal/model"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/search"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/models"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/utils"
)

// dial remembers the last value of norm "knob.x".
type dial struct {
	x float64
}

func (d *dial) Step(norms models.Assignment) error {
	x, ok := norms.Get("knob", "x")
	if !ok {
		return errors.New("knob.x is missing")
	}
	d.x = x
	return nil
}

func newDial([]any, map[string]any, *utils.RandSource) (model.Model, error) {
	return &dial{}, nil
}

// peak scores 0 at x = 0.5 and less elsewhere.
func peak(m model.Model) (float64, error) {
	d := m.(*dial).x - 0.5
	return -d * d, nil
}

func dialProblem() Problem {
	return Problem{
		Model:       newDial,
		Value:       peak,
		Norms:       models.NormSpace{"knob": {"x"}},
		Lower:       models.Bounds{"knob": {"x": 0}},
		Upper:       models.Bounds{"knob": {"x": 1}},
		Optimizer:   "HC",
		OptKwargs:   map[string]any{"pop_size": 10, "seed": 3},
		Termination: map[string]any{"max_epoch": 30},
		PathLength:  2,
		PathSample:  2,
		Seed:        1,
	}
}

func TestOptimizeFindsPeak(t *testing.T) {
	res, err := New(nil).Optimize(context.Background(), dialProblem())
	require.NoError(t, err)

	x, ok := res.Norms.Get("knob", "x")
	require.True(t, ok)
	assert.InDelta(t, 0.5, x, 0.05)
	assert.InDelta(t, 0, res.Alignment, 0.01)
	assert.Equal(t, 30, res.Epochs)
	assert.Equal(t, search.StopMaxEpoch, res.StopReason)
	assert.Positive(t, res.Evaluations)
}

func TestOptimizeAppliesConstraintPenalty(t *testing.T) {
	p := dialProblem()
	// Pull x towards 0.2: g(x) = x - 0.2
	p.Constraints = []models.ConstraintFunc{models.LinearConstraint{
		Kind:   models.ConstraintEqual,
		Coef:   models.Assignment{"knob": {"x": 1}},
		Offset: -0.2,
	}.Func()}
	p.LambdaConst = 10

	res, err := New(nil).Optimize(context.Background(), p)
	require.NoError(t, err)

	x, _ := res.Norms.Get("knob", "x")
	assert.InDelta(t, 0.2, x, 0.05)
	assert.Less(t, res.Alignment, -0.05)
	assert.InDelta(t, 0, res.Penalty, 0.05)
}

func TestOptimizeValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Problem)
		field  string
	}{
		{"no model", func(p *Problem) { p.Model = nil }, "model"},
		{"no value", func(p *Problem) { p.Value = nil }, "value"},
		{"empty norm space", func(p *Problem) { p.Norms = models.NormSpace{} }, "norms"},
		{"missing lower bound", func(p *Problem) { p.Lower = models.Bounds{} }, "lower_bounds"},
		{"undeclared upper bound", func(p *Problem) { p.Upper["knob"]["y"] = 1 }, "upper_bounds"},
		{"inverted bounds", func(p *Problem) { p.Lower["knob"]["x"] = 2 }, "bounds"},
		{"zero path length", func(p *Problem) { p.PathLength = 0 }, "path_length"},
		{"negative path sample", func(p *Problem) { p.PathSample = -3 }, "path_sample"},
		{"negative lambda", func(p *Problem) { p.LambdaConst = -1 }, "lambda_const"},
		{"bad optimizer option", func(p *Problem) { p.OptKwargs = map[string]any{"colour": 1} }, "optimizer"},
		{"bad termination", func(p *Problem) { p.Termination = map[string]any{"max_iter": 3} }, "term_dict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := dialProblem()
			tt.mutate(&p)

			_, err := New(nil).Optimize(context.Background(), p)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestOptimizeUnknownOptimizer(t *testing.T) {
	p := dialProblem()
	p.Optimizer = "mealpy.bio_based.SMA.OriginalSMA"

	_, err := New(nil).Optimize(context.Background(), p)
	var unknown *search.UnknownOptimizerError
	assert.True(t, errors.As(err, &unknown))
}

func TestOptimizeSurfacesModelFailures(t *testing.T) {
	p := dialProblem()
	p.Model = func([]any, map[string]any, *utils.RandSource) (model.Model, error) {
		return nil, errors.New("unsupported kwargs")
	}

	_, err := New(nil).Optimize(context.Background(), p)
	require.Error(t, err)
	var vErr *ValidationError
	assert.False(t, errors.As(err, &vErr))
	assert.Contains(t, err.Error(), "unsupported kwargs")
}

type recorder struct {
	opts search.Options
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Solve(_ context.Context, p search.Problem, _ search.Termination) (*search.Solution, error) {
	return &search.Solution{Position: append([]float64(nil), p.Lower...)}, nil
}

func TestOptimizePassesOptimizerOptions(t *testing.T) {
	rec := &recorder{}
	reg := search.NewRegistry()
	require.NoError(t, reg.Register(search.Spec{
		ID:     "test.Recorder",
		Schema: search.Schema{{Name: "pop_size", Kind: search.KindInt, Default: 10}},
		Build: func(o search.Options) (search.Optimizer, error) {
			rec.opts = o
			return rec, nil
		},
	}))

	p := dialProblem()
	p.Optimizer = "test.Recorder"
	p.OptKwargs = map[string]any{"pop_size": 50}

	res, err := New(reg).Optimize(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 50, rec.opts.Int("pop_size"))
	assert.Equal(t, models.Assignment{"knob": {"x": 0}}, res.Norms)
}
