package normd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/GoSim-25-26J-441/norm-optimizer/internal/metrics"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/model"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/normopt"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/search"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/config"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/models"
)

const testConfigYAML = `
model:
  name: tax
  kwargs: {n_agents: 20, n_segments: 2}
value:
  name: equality
norms:
  tax: [rate_0, rate_1]
lower_bounds:
  tax: {rate_0: 0, rate_1: 0}
upper_bounds:
  tax: {rate_0: 1, rate_1: 1}
constraints:
  - name: budget
    kind: le
    coef: {tax: {rate_0: 0.5, rate_1: 0.5}}
    offset: -0.4
`

// fakeRunner records every problem it is asked to solve.
type fakeRunner struct {
	mu       sync.Mutex
	problems []normopt.Problem
	result   *normopt.Result
	err      error
	panics   any
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeRunner) Optimize(ctx context.Context, p normopt.Problem) (*normopt.Result, error) {
	f.mu.Lock()
	f.problems = append(f.problems, p)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.panics != nil {
		panic(f.panics)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &normopt.Result{
		Norms:     models.Assignment{"tax": {"rate_0": 0.25, "rate_1": 0.5}},
		Alignment: 0.75,
	}, nil
}

func (f *fakeRunner) last(t *testing.T) normopt.Problem {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.problems) == 0 {
		t.Fatalf("runner was never called")
	}
	return f.problems[len(f.problems)-1]
}

func newTestState(t *testing.T) State {
	t.Helper()
	cfg, err := config.ParseConfigYAMLString(testConfigYAML)
	if err != nil {
		t.Fatalf("ParseConfigYAMLString error: %v", err)
	}
	state, err := BuildState(cfg, model.DefaultRegistry(), search.DefaultRegistry())
	if err != nil {
		t.Fatalf("BuildState error: %v", err)
	}
	return state
}

func newTestService(t *testing.T, runner Runner, exposeDetail bool) *Service {
	t.Helper()
	return NewService(NewHolder(newTestState(t)), runner, search.DefaultRegistry(), metrics.NewCollector(), exposeDetail)
}

func newTestHTTP(t *testing.T, runner Runner) (*Service, http.Handler) {
	t.Helper()
	svc := newTestService(t, runner, true)
	return svc, NewHTTPServer(svc).Handler()
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rr.Body.String(), err)
	}
	return body
}

func mustUnmarshal(t *testing.T, text string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("unmarshal %q: %v", text, err)
	}
}
