package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/utils"
)

// errBudget is returned by the evaluator once the evaluation budget is spent.
var errBudget = errors.New("evaluation budget exhausted")

// agent is a candidate position with its score. Scores are always "higher is
// better"; the evaluator negates fitness for minimization problems.
type agent struct {
	pos   []float64
	score float64
}

func (a agent) clone() agent {
	return agent{pos: utils.CloneFloat64s(a.pos), score: a.score}
}

// evaluator wraps the fitness function, counting evaluations and tracking
// the best position seen.
type evaluator struct {
	ctx     context.Context
	problem Problem
	rng     *utils.RandSource
	maxFE   int

	evals int
	best  agent
	found bool
}

func newEvaluator(ctx context.Context, p Problem, rng *utils.RandSource, maxFE int) *evaluator {
	return &evaluator{ctx: ctx, problem: p, rng: rng, maxFE: maxFE, best: agent{score: math.Inf(-1)}}
}

// evaluate clips x to the bounds in place and scores it.
func (e *evaluator) evaluate(x []float64) (float64, error) {
	if e.maxFE > 0 && e.evals >= e.maxFE {
		return 0, errBudget
	}
	utils.ClipVector(x, e.problem.Lower, e.problem.Upper)

	f, err := e.problem.Fitness(e.ctx, x)
	e.evals++
	if err != nil {
		return 0, fmt.Errorf("evaluating candidate %d: %w", e.evals, err)
	}

	score := f
	if e.problem.Minimize {
		score = -f
	}
	if math.IsNaN(score) {
		score = math.Inf(-1)
	}
	if !e.found || score > e.best.score {
		e.best = agent{pos: utils.CloneFloat64s(x), score: score}
		e.found = true
	}
	return score, nil
}

// newAgent draws a uniform random position and evaluates it.
func (e *evaluator) newAgent() (agent, error) {
	pos := e.rng.UniformVector(e.problem.Lower, e.problem.Upper)
	score, err := e.evaluate(pos)
	if err != nil {
		return agent{}, err
	}
	return agent{pos: pos, score: score}, nil
}

func (e *evaluator) population(size int) ([]agent, error) {
	pop := make([]agent, 0, size)
	for i := 0; i < size; i++ {
		a, err := e.newAgent()
		if err != nil {
			return pop, err
		}
		pop = append(pop, a)
	}
	return pop, nil
}

// fitness converts an internal score back to the caller's direction.
func (e *evaluator) fitness(score float64) float64 {
	if e.problem.Minimize {
		return -score
	}
	return score
}

// algorithm is the per-optimizer part of a search. Both methods may return
// errBudget, which ends the search normally.
type algorithm interface {
	initialize(ev *evaluator) error
	epoch(ev *evaluator, epoch int) error
}

// run drives alg until a termination criterion is met.
func run(ctx context.Context, p Problem, term Termination, rng *utils.RandSource, alg algorithm) (*Solution, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if term.MaxEpoch <= 0 {
		return nil, fmt.Errorf("termination needs a positive %s", TermMaxEpoch)
	}

	start := time.Now()
	ev := newEvaluator(ctx, p, rng, term.MaxFE)
	conv := NewNoImprovementStrategy(term.MaxEarlyStop, 0)

	sol := &Solution{}
	record := func(epoch int) {
		sol.History = append(sol.History, Step{Epoch: epoch, Best: ev.fitness(ev.best.score), Evaluations: ev.evals})
	}

	stop, err := stopped(alg.initialize(ev))
	if err != nil {
		return nil, err
	}
	if stop {
		sol.StopReason = StopMaxFE
	}
	record(0)

	for epoch := 1; sol.StopReason == ""; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("search interrupted after %d epochs: %w", sol.Epochs, err)
		}
		if epoch > term.MaxEpoch {
			sol.StopReason = StopMaxEpoch
			break
		}
		if term.MaxTime > 0 && time.Since(start) >= term.MaxTime {
			sol.StopReason = StopMaxTime
			break
		}

		stop, err := stopped(alg.epoch(ev, epoch))
		if err != nil {
			return nil, err
		}
		sol.Epochs = epoch
		record(epoch)
		if stop {
			sol.StopReason = StopMaxFE
			break
		}
		if ok, _ := conv.CheckConvergence(sol.History); ok {
			sol.StopReason = StopEarlyStop
		}
	}

	if !ev.found {
		return nil, fmt.Errorf("no candidate was evaluated")
	}
	sol.Position = utils.CloneFloat64s(ev.best.pos)
	sol.Fitness = ev.fitness(ev.best.score)
	sol.Evaluations = ev.evals
	sol.Duration = time.Since(start)
	return sol, nil
}

func stopped(err error) (bool, error) {
	if errors.Is(err, errBudget) {
		return true, nil
	}
	return false, err
}

// bestOf returns the index of the highest scoring agent
func bestOf(pop []agent) int {
	best := 0
	for i := range pop {
		if pop[i].score > pop[best].score {
			best = i
		}
	}
	return best
}
