package model

import (
	"fmt"

	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/utils"
)

// Built-in value names
const (
	ValueEquality   = "equality"
	ValueFairness   = "fairness"
	ValueProsperity = "prosperity"
)

// WealthReporter is implemented by models that expose agent wealth.
type WealthReporter interface {
	Wealth() []float64
	InitialWealth() float64
}

// EvasionReporter is implemented by models that track norm evasion.
type EvasionReporter interface {
	Evasion() (evaders, caught int)
}

// Equality scores 1 - 2*Gini(wealth), in [-1, 1].
func Equality(m Model) (float64, error) {
	w, ok := m.(WealthReporter)
	if !ok {
		return 0, fmt.Errorf("equality: model %T does not report wealth", m)
	}
	return 1 - 2*utils.Gini(w.Wealth()), nil
}

// Fairness scores the share of evaders that were caught, mapped to [-1, 1].
// A step without evaders is perfectly fair.
func Fairness(m Model) (float64, error) {
	e, ok := m.(EvasionReporter)
	if !ok {
		return 0, fmt.Errorf("fairness: model %T does not report evasion", m)
	}
	evaders, caught := e.Evasion()
	if evaders == 0 {
		return 1, nil
	}
	return 2*float64(caught)/float64(evaders) - 1, nil
}

// Prosperity compares mean wealth with the initial mean, in (-1, 1).
func Prosperity(m Model) (float64, error) {
	w, ok := m.(WealthReporter)
	if !ok {
		return 0, fmt.Errorf("prosperity: model %T does not report wealth", m)
	}
	mean := utils.Mean(w.Wealth())
	base := w.InitialWealth()
	if mean+base == 0 {
		return 0, nil
	}
	return (mean - base) / (mean + base), nil
}
