package normd

import (
	"context"

	"github.com/GoSim-25-26J-441/norm-optimizer/internal/normopt"
)

// Runner runs one optimization over a snapshot of the holder.
// Implementations (e.g. normopt.Optimizer) are injected at startup to avoid circular imports.
type Runner interface {
	Optimize(ctx context.Context, p normopt.Problem) (*normopt.Result, error)
}

var _ Runner = (*normopt.Optimizer)(nil)
