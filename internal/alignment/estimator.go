// Package alignment estimates how well a norm assignment serves a value by
// sampling simulated evolution paths of a model.
package alignment

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/GoSim-25-26J-441/norm-optimizer/internal/model"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/models"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/utils"
)

// Config configures an Estimator
type Config struct {
	Model  model.Constructor
	Args   []any
	Kwargs map[string]any
	Value  model.ValueFunc

	// PathLength is the number of model steps per path.
	PathLength int
	// PathSample is the number of paths per estimate.
	PathSample int
	// Workers bounds the paths simulated concurrently. Zero means runtime.NumCPU().
	Workers int
	// Seed fixes the path seeds. Zero draws one from the clock.
	Seed int64
}

// Estimator scores assignments. Every assignment is scored on the same set
// of path seeds, so estimates of different assignments are directly comparable.
type Estimator struct {
	cfg  Config
	seed int64
}

// New validates cfg and creates an Estimator
func New(cfg Config) (*Estimator, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("model constructor is required")
	}
	if cfg.Value == nil {
		return nil, fmt.Errorf("value function is required")
	}
	if cfg.PathLength <= 0 {
		return nil, fmt.Errorf("path length must be positive, got %d", cfg.PathLength)
	}
	if cfg.PathSample <= 0 {
		return nil, fmt.Errorf("path sample must be positive, got %d", cfg.PathSample)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Estimator{cfg: cfg, seed: utils.NewRandSource(cfg.Seed).Seed()}, nil
}

// Seed returns the base seed of the path seeds
func (e *Estimator) Seed() int64 {
	return e.seed
}

// Estimate returns the mean path alignment of norms over PathSample paths.
// Paths run in blocks of Workers, so memory does not grow with PathSample.
func (e *Estimator) Estimate(ctx context.Context, norms models.Assignment) (float64, error) {
	block := make([]float64, min(e.cfg.Workers, e.cfg.PathSample))

	total := 0.0
	for start := 0; start < e.cfg.PathSample; start += len(block) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n := min(len(block), e.cfg.PathSample-start)
		if err := e.runBlock(ctx, norms, start, block[:n]); err != nil {
			return 0, err
		}
		// Summed in path order so the estimate does not depend on scheduling.
		for _, v := range block[:n] {
			total += v
		}
	}
	return total / float64(e.cfg.PathSample), nil
}

// runBlock simulates paths start..start+len(out)-1 concurrently into out.
func (e *Estimator) runBlock(ctx context.Context, norms models.Assignment, start int, out []float64) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range out {
		g.Go(func() error {
			v, err := e.Path(ctx, norms, start+i)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	return g.Wait()
}

// Path simulates path i and returns the mean value over its steps.
func (e *Estimator) Path(ctx context.Context, norms models.Assignment, i int) (algn float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Path: i, Value: r, Stack: debug.Stack()}
		}
	}()

	rng := utils.NewRandSource(utils.DeriveSeed(e.seed, i))
	m, err := e.cfg.Model(e.cfg.Args, e.cfg.Kwargs, rng)
	if err != nil {
		return 0, fmt.Errorf("path %d: constructing model: %w", i, err)
	}

	total := 0.0
	for step := 0; step < e.cfg.PathLength; step++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := m.Step(norms); err != nil {
			return 0, fmt.Errorf("path %d step %d: %w", i, step, err)
		}
		v, err := e.cfg.Value(m)
		if err != nil {
			return 0, fmt.Errorf("path %d step %d: scoring: %w", i, step, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("path %d step %d: value function returned %v", i, step, v)
		}
		total += v
	}
	return total / float64(e.cfg.PathLength), nil
}

// PanicError carries a panic raised while simulating a path.
type PanicError struct {
	Path  int
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("path %d panicked: %v", e.Path, e.Value)
}
