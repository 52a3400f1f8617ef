package search

import (
	"fmt"
	"math"
)

// ConvergenceStrategy defines how to detect convergence
type ConvergenceStrategy interface {
	// CheckConvergence checks if the search has converged based on history
	CheckConvergence(history []Step) (bool, string)
	// Name returns the name of the convergence strategy
	Name() string
}

// NoImprovementStrategy detects convergence when the best fitness has not
// changed for a number of epochs.
type NoImprovementStrategy struct {
	patience  int
	tolerance float64
}

// NewNoImprovementStrategy creates a no-improvement strategy. A patience of
// zero never converges.
func NewNoImprovementStrategy(patience int, tolerance float64) *NoImprovementStrategy {
	if tolerance < 0 {
		tolerance = 0
	}
	return &NoImprovementStrategy{patience: patience, tolerance: tolerance}
}

func (s *NoImprovementStrategy) Name() string {
	return "no_improvement"
}

// CheckConvergence relies on the best-so-far value being monotone, so any
// change counts as an improvement whichever way the search is going.
func (s *NoImprovementStrategy) CheckConvergence(history []Step) (converged bool, reason string) {
	if s.patience <= 0 || len(history) <= s.patience {
		return false, ""
	}

	last := history[len(history)-1].Best
	bestAt := len(history) - 1
	for bestAt > 0 && math.Abs(history[bestAt-1].Best-last) <= s.tolerance {
		bestAt--
	}

	since := len(history) - 1 - bestAt
	if since >= s.patience {
		return true, fmt.Sprintf("no improvement for %d epochs (best at epoch %d)", since, history[bestAt].Epoch)
	}
	return false, ""
}
