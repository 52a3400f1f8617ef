package search

import (
	"context"
	"math"

	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/utils"
)

// Option names shared by every optimizer
const (
	OptEpoch   = "epoch"
	OptPopSize = "pop_size"
	OptSeed    = "seed"
)

func epochOption() OptionSpec {
	return OptionSpec{Name: OptEpoch, Kind: KindInt, Default: 10000, Range: between(1, 1e7), Doc: "maximum number of epochs when no max_epoch termination is set"}
}

func popSizeOption(min float64, def int) OptionSpec {
	return OptionSpec{Name: OptPopSize, Kind: KindInt, Default: def, Range: between(min, 1e5), Doc: "candidates per epoch"}
}

func seedOption() OptionSpec {
	return OptionSpec{Name: OptSeed, Kind: KindInt, Default: 0, Range: between(0, 1<<53), Doc: "random seed, 0 draws one from the clock"}
}

func seeded(o Options) *utils.RandSource {
	return utils.NewRandSource(int64(o.Int(OptSeed)))
}

var gaSchema = Schema{
	epochOption(),
	popSizeOption(2, 100),
	{Name: "pc", Kind: KindFloat, Default: 0.95, Range: between(0, 1), Doc: "crossover probability"},
	{Name: "pm", Kind: KindFloat, Default: 0.025, Range: between(0, 1), Doc: "per-gene mutation probability"},
	{Name: "selection", Kind: KindString, Default: SelectionTournament, Choices: []string{SelectionTournament, SelectionRoulette}, Doc: "parent selection method"},
	{Name: "k_way", Kind: KindFloat, Default: 0.2, Range: between(0, 1), Doc: "tournament size as a fraction of the population"},
	seedOption(),
}

// GA is a generational genetic algorithm with uniform crossover, uniform
// mutation and an elite of one.
type GA struct {
	opts Options
}

func newGA(opts Options) (Optimizer, error) {
	return &GA{opts: opts}, nil
}

func (g *GA) Name() string {
	return IDGA
}

func (g *GA) Solve(ctx context.Context, p Problem, term Termination) (*Solution, error) {
	popSize := g.opts.Int(OptPopSize)
	k := int(math.Round(g.opts.Float("k_way") * float64(popSize)))
	if k < 2 {
		k = 2
	}
	sel, err := NewSelectionStrategy(g.opts.String("selection"), k)
	if err != nil {
		return nil, err
	}

	alg := &gaRun{
		popSize:   popSize,
		pc:        g.opts.Float("pc"),
		pm:        g.opts.Float("pm"),
		selection: sel,
	}
	return run(ctx, p, term.WithDefaultEpoch(g.opts.Int(OptEpoch)), seeded(g.opts), alg)
}

type gaRun struct {
	popSize   int
	pc        float64
	pm        float64
	selection SelectionStrategy
	pop       []agent
}

func (g *gaRun) initialize(ev *evaluator) error {
	var err error
	g.pop, err = ev.population(g.popSize)
	return err
}

func (g *gaRun) epoch(ev *evaluator, _ int) error {
	rng := ev.rng
	lower, upper := ev.problem.Lower, ev.problem.Upper

	next := make([]agent, 0, g.popSize)
	next = append(next, g.pop[bestOf(g.pop)].clone())
	for len(next) < g.popSize {
		mother := g.pop[g.selection.Select(g.pop, rng)]
		father := g.pop[g.selection.Select(g.pop, rng)]

		child := utils.CloneFloat64s(mother.pos)
		if rng.Float64() < g.pc {
			for i := range child {
				if rng.BernoulliBool(0.5) {
					child[i] = father.pos[i]
				}
			}
		}
		for i := range child {
			if rng.Float64() < g.pm {
				child[i] = rng.UniformFloat64(lower[i], upper[i])
			}
		}

		score, err := ev.evaluate(child)
		if err != nil {
			return err
		}
		next = append(next, agent{pos: child, score: score})
	}
	g.pop = next
	return nil
}
