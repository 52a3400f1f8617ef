package search

import (
	"context"
)

var hcSchema = Schema{
	epochOption(),
	popSizeOption(1, 50),
	{Name: "neighbour_size", Kind: KindFloat, Default: 0.1, Range: between(1e-9, 1), Doc: "neighbourhood radius as a fraction of each variable's range"},
	{Name: "explorer", Kind: KindString, Default: ExplorerGaussian, Choices: []string{ExplorerGaussian, ExplorerCoordinate}, Doc: "neighbour generation strategy"},
	seedOption(),
}

// HC is a hill-climbing optimizer: every epoch it samples pop_size neighbours
// of the current position and moves to the best one if it improves.
type HC struct {
	opts     Options
	explorer ParameterExplorer
}

func newHC(opts Options) (Optimizer, error) {
	explorer, err := NewParameterExplorer(opts.String("explorer"))
	if err != nil {
		return nil, err
	}
	return &HC{opts: opts, explorer: explorer}, nil
}

// WithExplorer sets a custom parameter exploration strategy
func (h *HC) WithExplorer(explorer ParameterExplorer) *HC {
	h.explorer = explorer
	return h
}

func (h *HC) Name() string {
	return IDHC
}

func (h *HC) Solve(ctx context.Context, p Problem, term Termination) (*Solution, error) {
	alg := &hcRun{
		neighbours: h.opts.Int(OptPopSize),
		step:       h.opts.Float("neighbour_size"),
		explorer:   h.explorer,
	}
	return run(ctx, p, term.WithDefaultEpoch(h.opts.Int(OptEpoch)), seeded(h.opts), alg)
}

type hcRun struct {
	neighbours int
	step       float64
	explorer   ParameterExplorer
	current    agent
}

func (h *hcRun) initialize(ev *evaluator) error {
	var err error
	h.current, err = ev.newAgent()
	return err
}

func (h *hcRun) epoch(ev *evaluator, _ int) error {
	p := ev.problem
	best := agent{}
	found := false
	for i := 0; i < h.neighbours; i++ {
		pos := h.explorer.Neighbour(h.current.pos, p.Lower, p.Upper, h.step, ev.rng)
		score, err := ev.evaluate(pos)
		if err != nil {
			return err
		}
		if !found || score > best.score {
			best = agent{pos: pos, score: score}
			found = true
		}
	}
	if found && best.score > h.current.score {
		h.current = best
	}
	return nil
}
