package search

import (
	"context"
)

var rsSchema = Schema{
	epochOption(),
	popSizeOption(1, 100),
	seedOption(),
}

// RS is pure random search. It is mostly useful as a baseline.
type RS struct {
	opts Options
}

func newRS(opts Options) (Optimizer, error) {
	return &RS{opts: opts}, nil
}

func (s *RS) Name() string {
	return IDRS
}

func (s *RS) Solve(ctx context.Context, p Problem, term Termination) (*Solution, error) {
	alg := &rsRun{popSize: s.opts.Int(OptPopSize)}
	return run(ctx, p, term.WithDefaultEpoch(s.opts.Int(OptEpoch)), seeded(s.opts), alg)
}

type rsRun struct {
	popSize int
}

func (s *rsRun) initialize(ev *evaluator) error {
	_, err := ev.population(s.popSize)
	return err
}

func (s *rsRun) epoch(ev *evaluator, _ int) error {
	_, err := ev.population(s.popSize)
	return err
}
