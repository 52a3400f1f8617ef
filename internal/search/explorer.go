package search

import (
	"fmt"

	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/utils"
)

// Explorer names accepted by the HC explorer option
const (
	ExplorerGaussian   = "gaussian"
	ExplorerCoordinate = "coordinate"
)

// ParameterExplorer defines strategies for exploring the neighbourhood of a position
type ParameterExplorer interface {
	// Neighbour returns a new position near base. step is a fraction of each variable's range.
	Neighbour(base, lower, upper []float64, step float64, rng *utils.RandSource) []float64
	// Name returns the name of the exploration strategy
	Name() string
}

// GaussianExplorer perturbs every variable with normal noise scaled to its range.
type GaussianExplorer struct{}

func (e *GaussianExplorer) Name() string {
	return ExplorerGaussian
}

func (e *GaussianExplorer) Neighbour(base, lower, upper []float64, step float64, rng *utils.RandSource) []float64 {
	out := make([]float64, len(base))
	for i := range base {
		out[i] = base[i] + rng.NormFloat64(0, step*(upper[i]-lower[i]))
	}
	return utils.ClipVector(out, lower, upper)
}

// CoordinateExplorer moves a single random variable up or down by the step.
type CoordinateExplorer struct{}

func (e *CoordinateExplorer) Name() string {
	return ExplorerCoordinate
}

func (e *CoordinateExplorer) Neighbour(base, lower, upper []float64, step float64, rng *utils.RandSource) []float64 {
	out := utils.CloneFloat64s(base)
	i := rng.Intn(len(base))
	delta := step * (upper[i] - lower[i])
	if rng.BernoulliBool(0.5) {
		delta = -delta
	}
	out[i] += delta
	return utils.ClipVector(out, lower, upper)
}

// NewParameterExplorer returns the explorer registered under name
func NewParameterExplorer(name string) (ParameterExplorer, error) {
	switch name {
	case ExplorerGaussian:
		return &GaussianExplorer{}, nil
	case ExplorerCoordinate:
		return &CoordinateExplorer{}, nil
	default:
		return nil, fmt.Errorf("unknown explorer %q", name)
	}
}
