package search

import (
	"context"
	"fmt"
	"math"
	"time"
)

// FitnessFunc scores a candidate position
type FitnessFunc func(ctx context.Context, x []float64) (float64, error)

// Problem is a bounded continuous optimization problem.
type Problem struct {
	Lower   []float64
	Upper   []float64
	Fitness FitnessFunc
	// Minimize flips the direction of the search. The default is to maximize.
	Minimize bool
}

// Dim returns the number of decision variables
func (p Problem) Dim() int {
	return len(p.Lower)
}

func (p Problem) validate() error {
	if p.Fitness == nil {
		return fmt.Errorf("fitness function is required")
	}
	if len(p.Lower) == 0 {
		return fmt.Errorf("problem has no decision variables")
	}
	if len(p.Lower) != len(p.Upper) {
		return fmt.Errorf("lower bounds have %d entries, upper bounds %d", len(p.Lower), len(p.Upper))
	}
	for i := range p.Lower {
		if math.IsNaN(p.Lower[i]) || math.IsNaN(p.Upper[i]) || math.IsInf(p.Lower[i], 0) || math.IsInf(p.Upper[i], 0) {
			return fmt.Errorf("bounds of variable %d must be finite", i)
		}
		if p.Lower[i] > p.Upper[i] {
			return fmt.Errorf("variable %d has lower bound %g above upper bound %g", i, p.Lower[i], p.Upper[i])
		}
	}
	return nil
}

// Stop reasons reported in Solution.StopReason
const (
	StopMaxEpoch  = TermMaxEpoch
	StopMaxFE     = TermMaxFE
	StopMaxTime   = TermMaxTime
	StopEarlyStop = TermMaxEarlyStop
)

// Step records the best fitness after an epoch. Epoch 0 is the initial population.
type Step struct {
	Epoch       int
	Best        float64
	Evaluations int
}

// Solution is the outcome of a search.
type Solution struct {
	Position    []float64
	Fitness     float64
	Epochs      int
	Evaluations int
	Duration    time.Duration
	StopReason  string
	History     []Step
}

// Optimizer solves a Problem under a Termination
type Optimizer interface {
	Name() string
	Solve(ctx context.Context, p Problem, term Termination) (*Solution, error)
}
