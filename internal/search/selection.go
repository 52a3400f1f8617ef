package search

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/utils"
)

// Selection method names accepted by the GA selection option
const (
	SelectionTournament = "tournament"
	SelectionRoulette   = "roulette"
)

// SelectionStrategy picks a parent index from a scored population
type SelectionStrategy interface {
	Select(pop []agent, rng *utils.RandSource) int
	// Name returns the name of the selection strategy
	Name() string
}

// TournamentSelection picks the best of k agents drawn without replacement.
type TournamentSelection struct {
	k int
}

// NewTournamentSelection creates a tournament of size k
func NewTournamentSelection(k int) *TournamentSelection {
	if k < 1 {
		k = 1
	}
	return &TournamentSelection{k: k}
}

func (s *TournamentSelection) Name() string {
	return SelectionTournament
}

func (s *TournamentSelection) Select(pop []agent, rng *utils.RandSource) int {
	k := s.k
	if k > len(pop) {
		k = len(pop)
	}
	picks := rng.Choice(len(pop), k, -1)
	best := picks[0]
	for _, i := range picks[1:] {
		if pop[i].score > pop[best].score {
			best = i
		}
	}
	return best
}

// RouletteSelection picks agents with probability proportional to their
// score shifted above the population minimum.
type RouletteSelection struct{}

func (s *RouletteSelection) Name() string {
	return SelectionRoulette
}

func (s *RouletteSelection) Select(pop []agent, rng *utils.RandSource) int {
	lowest := math.Inf(1)
	for _, a := range pop {
		if a.score < lowest {
			lowest = a.score
		}
	}

	weights := make([]float64, len(pop))
	total := 0.0
	for i, a := range pop {
		w := a.score - lowest
		if math.IsInf(w, 0) || math.IsNaN(w) {
			w = 0
		}
		// Keep the worst agent selectable.
		w += 1e-12
		weights[i] = w
		total += w
	}

	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return i
		}
	}
	return len(pop) - 1
}

// NewSelectionStrategy returns the strategy registered under name
func NewSelectionStrategy(name string, k int) (SelectionStrategy, error) {
	switch name {
	case SelectionTournament:
		return NewTournamentSelection(k), nil
	case SelectionRoulette:
		return &RouletteSelection{}, nil
	default:
		return nil, fmt.Errorf("unknown selection strategy %q", name)
	}
}
