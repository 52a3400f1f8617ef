package normd

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/GoSim-25-26J-441/norm-optimizer/internal/alignment"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/metrics"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/normopt"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/search"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/logger"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/models"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/utils"
)

// Field names used in errors, logs and metrics
const (
	FieldOptimizerClass  = "opt_cls"
	FieldOptimizerArgs   = "opt_args"
	FieldOptimizerKwargs = "opt_kwargs"
	FieldTermination     = "term_dict"
	FieldPathLength      = "path_length"
	FieldPathSample      = "path_sample"
)

// Service implements the operations shared by the HTTP and gRPC surfaces.
type Service struct {
	holder       *Holder
	runner       Runner
	optimizers   *search.Registry
	metrics      *metrics.Collector
	exposeDetail bool
}

// NewService creates a Service. collector may be nil.
func NewService(holder *Holder, runner Runner, optimizers *search.Registry, collector *metrics.Collector, exposeDetail bool) *Service {
	if optimizers == nil {
		optimizers = search.DefaultRegistry()
	}
	return &Service{
		holder:       holder,
		runner:       runner,
		optimizers:   optimizers,
		metrics:      collector,
		exposeDetail: exposeDetail,
	}
}

// Holder returns the configuration holder
func (s *Service) Holder() *Holder {
	return s.holder
}

// Metrics returns the collector, or nil
func (s *Service) Metrics() *metrics.Collector {
	return s.metrics
}

// Describe renders err for a client according to the detail setting
func (s *Service) Describe(err error) string {
	return describe(err, s.exposeDetail)
}

// Optimize runs the optimizer over a snapshot of the holder. Every failure,
// including a panic, comes back as a *CollaboratorError.
func (s *Service) Optimize(ctx context.Context) (res *normopt.Result, err error) {
	state := s.holder.Snapshot()
	runID := utils.GenerateRunID()
	start := time.Now()
	logger.Info("optimization requested", "run_id", runID, "optimizer", state.OptimizerClass)
	if s.metrics != nil {
		done := s.metrics.RunStarted()
		defer done()
	}
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &CollaboratorError{Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		}
		s.recordRun(runID, state.OptimizerClass, time.Since(start), res, err)
	}()

	res, err = s.runner.Optimize(ctx, state.Problem())
	if err != nil {
		var panicErr *alignment.PanicError
		var stack []byte
		if errors.As(err, &panicErr) {
			stack = panicErr.Stack
		}
		return nil, &CollaboratorError{Err: err, Stack: stack}
	}
	if res == nil {
		return nil, &CollaboratorError{Err: errors.New("optimizer returned no result")}
	}
	return res, nil
}

func (s *Service) recordRun(runID, optimizer string, d time.Duration, res *normopt.Result, err error) {
	if err != nil {
		outcome := metrics.OutcomeFailed
		var validErr *normopt.ValidationError
		if errors.As(err, &validErr) {
			outcome = metrics.OutcomeInvalid
		}
		logger.Info("optimization run ended", "run_id", runID, "outcome", outcome, "duration", d)
		if s.metrics != nil {
			metrics.RecordRunFailure(s.metrics, optimizer, outcome, d)
		}
		return
	}
	logger.Info("optimization run ended", "run_id", runID, "outcome", metrics.OutcomeOK, "duration", d, "algn", res.Alignment)
	if s.metrics != nil {
		metrics.RecordRunSuccess(s.metrics, optimizer, d, res.Evaluations, res.Alignment)
	}
}

// SetOptimizerClass resolves name and stores its canonical identifier.
// Stored args and kwargs are not checked against the new optimizer.
func (s *Service) SetOptimizerClass(name string) error {
	id, err := s.optimizers.Resolve(name)
	if err != nil {
		return err
	}
	s.holder.SetOptimizerClass(id)
	s.mutated(FieldOptimizerClass, "optimizer", id)
	return nil
}

// SetOptimizerArgs stores args after checking them against the current
// optimizer's positional options.
func (s *Service) SetOptimizerArgs(args []any) error {
	if args == nil {
		args = []any{}
	}
	args = cloneSlice(args)
	// The class is read and the args stored under one lock, so a concurrent
	// opt_cls change cannot land between the check and the write.
	err := s.holder.Update(func(st *State) error {
		if _, err := s.optimizers.Options(st.OptimizerClass, args, nil); err != nil {
			return &ValidationError{Field: FieldOptimizerArgs, Err: err}
		}
		st.OptArgs = args
		return nil
	})
	if err != nil {
		return err
	}
	s.mutated(FieldOptimizerArgs, "count", len(args))
	return nil
}

// SetOptimizerKwargs stores kwargs after checking them against the current
// optimizer's options.
func (s *Service) SetOptimizerKwargs(kwargs map[string]any) error {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	kwargs = cloneMap(kwargs)
	err := s.holder.Update(func(st *State) error {
		if _, err := s.optimizers.Options(st.OptimizerClass, nil, kwargs); err != nil {
			return &ValidationError{Field: FieldOptimizerKwargs, Err: err}
		}
		st.OptKwargs = kwargs
		return nil
	})
	if err != nil {
		return err
	}
	s.mutated(FieldOptimizerKwargs, "count", len(kwargs))
	return nil
}

// SetTermination stores a termination dictionary after checking its keys
func (s *Service) SetTermination(term map[string]any) error {
	if term == nil {
		term = map[string]any{}
	}
	if _, err := search.ParseTermination(term); err != nil {
		return &ValidationError{Field: FieldTermination, Err: err}
	}
	s.holder.SetTermination(term)
	s.mutated(FieldTermination, "count", len(term))
	return nil
}

// SetPathLength stores the number of steps per path
func (s *Service) SetPathLength(n int) {
	s.holder.SetPathLength(n)
	s.mutated(FieldPathLength, "value", n)
}

// SetPathSample stores the number of paths per estimate
func (s *Service) SetPathSample(n int) {
	s.holder.SetPathSample(n)
	s.mutated(FieldPathSample, "value", n)
}

func (s *Service) mutated(field string, args ...any) {
	if s.metrics != nil {
		s.metrics.ObserveMutation(field)
	}
	logger.Info("configuration updated", append([]any{"field", field}, args...)...)
}

// Config returns a JSON and structpb friendly view of the holder.
func (s *Service) Config() map[string]any {
	st := s.holder.Snapshot()

	norms := make(map[string]any, len(st.Norms))
	for norm, params := range st.Norms {
		list := make([]any, len(params))
		for i, p := range params {
			list[i] = p
		}
		norms[norm] = list
	}
	names := make([]any, len(st.ConstraintNames))
	for i, n := range st.ConstraintNames {
		names[i] = n
	}

	return map[string]any{
		"model": map[string]any{
			"name":   st.ModelName,
			"args":   orEmptySlice(st.ModelArgs),
			"kwargs": orEmptyMap(st.ModelKwargs),
		},
		"value":              st.ValueName,
		"norms":              norms,
		"lower_bounds":       AssignmentView(models.Assignment(st.Lower)),
		"upper_bounds":       AssignmentView(models.Assignment(st.Upper)),
		"constraints":        len(st.Constraints),
		"constraint_names":   names,
		"lambda_const":       st.LambdaConst,
		FieldOptimizerClass:  st.OptimizerClass,
		FieldOptimizerArgs:   orEmptySlice(st.OptArgs),
		FieldOptimizerKwargs: orEmptyMap(st.OptKwargs),
		FieldTermination:     orEmptyMap(st.Termination),
		FieldPathLength:      st.PathLength,
		FieldPathSample:      st.PathSample,
		"workers":            st.Workers,
		"seed":               st.Seed,
	}
}

// ResultView is the response body of an optimization run
func ResultView(res *normopt.Result) map[string]any {
	return map[string]any{
		"norms": AssignmentView(res.Norms),
		"algn":  res.Alignment,
	}
}

// AssignmentView converts an assignment to nested generic maps
func AssignmentView(a models.Assignment) map[string]any {
	out := make(map[string]any, len(a))
	for norm, params := range a {
		inner := make(map[string]any, len(params))
		for p, v := range params {
			inner[p] = v
		}
		out[norm] = inner
	}
	return out
}

func orEmptySlice(in []any) []any {
	if in == nil {
		return []any{}
	}
	return in
}

func orEmptyMap(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	return in
}
