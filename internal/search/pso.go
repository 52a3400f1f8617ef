package search

import (
	"context"
	"fmt"

	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/utils"
)

var psoSchema = Schema{
	epochOption(),
	popSizeOption(1, 100),
	{Name: "c1", Kind: KindFloat, Default: 2.05, Range: between(0, 5), Doc: "cognitive coefficient"},
	{Name: "c2", Kind: KindFloat, Default: 2.05, Range: between(0, 5), Doc: "social coefficient"},
	{Name: "w_min", Kind: KindFloat, Default: 0.4, Range: between(0, 1), Doc: "inertia weight at the last epoch"},
	{Name: "w_max", Kind: KindFloat, Default: 0.9, Range: between(0, 1), Doc: "inertia weight at the first epoch"},
	seedOption(),
}

// PSO is particle swarm optimization with linearly decreasing inertia.
type PSO struct {
	opts Options
}

func newPSO(opts Options) (Optimizer, error) {
	if opts.Float("w_min") > opts.Float("w_max") {
		return nil, &OptionError{Optimizer: IDPSO, Option: "w_min", Reason: fmt.Sprintf("must not exceed w_max %g", opts.Float("w_max"))}
	}
	return &PSO{opts: opts}, nil
}

func (s *PSO) Name() string {
	return IDPSO
}

func (s *PSO) Solve(ctx context.Context, p Problem, term Termination) (*Solution, error) {
	term = term.WithDefaultEpoch(s.opts.Int(OptEpoch))
	alg := &psoRun{
		popSize:  s.opts.Int(OptPopSize),
		c1:       s.opts.Float("c1"),
		c2:       s.opts.Float("c2"),
		wMin:     s.opts.Float("w_min"),
		wMax:     s.opts.Float("w_max"),
		maxEpoch: term.MaxEpoch,
	}
	return run(ctx, p, term, seeded(s.opts), alg)
}

type psoRun struct {
	popSize  int
	c1, c2   float64
	wMin     float64
	wMax     float64
	maxEpoch int

	pos   []agent
	vel   [][]float64
	pbest []agent
	vmax  []float64
}

func (s *psoRun) initialize(ev *evaluator) error {
	p := ev.problem
	s.vmax = make([]float64, p.Dim())
	for i := range s.vmax {
		s.vmax[i] = 0.5 * (p.Upper[i] - p.Lower[i])
	}

	pop, err := ev.population(s.popSize)
	s.pos = pop
	for _, a := range pop {
		v := make([]float64, p.Dim())
		for i := range v {
			v[i] = ev.rng.UniformFloat64(-s.vmax[i], s.vmax[i])
		}
		s.vel = append(s.vel, v)
		s.pbest = append(s.pbest, a.clone())
	}
	return err
}

func (s *psoRun) epoch(ev *evaluator, epoch int) error {
	rng := ev.rng
	w := s.wMax
	if s.maxEpoch > 1 {
		w = s.wMax - (s.wMax-s.wMin)*float64(epoch-1)/float64(s.maxEpoch-1)
	}
	gbest := ev.best.pos

	for k := range s.pos {
		x, v := s.pos[k].pos, s.vel[k]
		next := make([]float64, len(x))
		for i := range x {
			v[i] = w*v[i] +
				s.c1*rng.Float64()*(s.pbest[k].pos[i]-x[i]) +
				s.c2*rng.Float64()*(gbest[i]-x[i])
			v[i] = utils.ClampFloat64(v[i], -s.vmax[i], s.vmax[i])
			next[i] = x[i] + v[i]
		}

		score, err := ev.evaluate(next)
		if err != nil {
			return err
		}
		s.pos[k] = agent{pos: next, score: score}
		if score > s.pbest[k].score {
			s.pbest[k] = s.pos[k].clone()
		}
	}
	return nil
}
