package search

import (
	"context"
)

var deSchema = Schema{
	epochOption(),
	popSizeOption(4, 100),
	{Name: "wf", Kind: KindFloat, Default: 0.1, Range: between(0, 3), Doc: "differential weight"},
	{Name: "cr", Kind: KindFloat, Default: 0.9, Range: between(0, 1), Doc: "crossover rate"},
	seedOption(),
}

// DE is differential evolution with the rand/1/bin scheme.
type DE struct {
	opts Options
}

func newDE(opts Options) (Optimizer, error) {
	return &DE{opts: opts}, nil
}

func (d *DE) Name() string {
	return IDDE
}

func (d *DE) Solve(ctx context.Context, p Problem, term Termination) (*Solution, error) {
	alg := &deRun{
		popSize: d.opts.Int(OptPopSize),
		wf:      d.opts.Float("wf"),
		cr:      d.opts.Float("cr"),
	}
	return run(ctx, p, term.WithDefaultEpoch(d.opts.Int(OptEpoch)), seeded(d.opts), alg)
}

type deRun struct {
	popSize int
	wf      float64
	cr      float64
	pop     []agent
}

func (d *deRun) initialize(ev *evaluator) error {
	var err error
	d.pop, err = ev.population(d.popSize)
	return err
}

func (d *deRun) epoch(ev *evaluator, _ int) error {
	rng := ev.rng
	dim := ev.problem.Dim()

	for i := range d.pop {
		r := rng.Choice(len(d.pop), 3, i)
		a, b, c := d.pop[r[0]].pos, d.pop[r[1]].pos, d.pop[r[2]].pos

		trial := make([]float64, dim)
		jrand := rng.Intn(dim)
		for j := 0; j < dim; j++ {
			if j == jrand || rng.Float64() < d.cr {
				trial[j] = a[j] + d.wf*(b[j]-c[j])
			} else {
				trial[j] = d.pop[i].pos[j]
			}
		}

		score, err := ev.evaluate(trial)
		if err != nil {
			return err
		}
		if score >= d.pop[i].score {
			d.pop[i] = agent{pos: trial, score: score}
		}
	}
	return nil
}
