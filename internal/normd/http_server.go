package normd

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/norm-optimizer/internal/metrics"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/logger"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/utils"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 1 << 20

// Endpoint paths
const (
	PathOptimize        = "/opt_norms"
	PathOptimizerClass  = "/opt_cls"
	PathOptimizerArgs   = "/opt_args"
	PathOptimizerKwargs = "/opt_kwargs"
	PathTermination     = "/term_dict"
	PathPathLength      = "/path_length"
	PathPathSample      = "/path_sample"
	PathConfig          = "/config"
	PathHealthz         = "/healthz"
	PathMetrics         = "/metrics"
)

var knownPaths = map[string]bool{
	PathOptimize:        true,
	PathOptimizerClass:  true,
	PathOptimizerArgs:   true,
	PathOptimizerKwargs: true,
	PathTermination:     true,
	PathPathLength:      true,
	PathPathSample:      true,
	PathConfig:          true,
	PathHealthz:         true,
	PathMetrics:         true,
}

type HTTPServer struct {
	mux     *http.ServeMux
	service *Service
}

func NewHTTPServer(service *Service) *HTTPServer {
	s := &HTTPServer{
		mux:     http.NewServeMux(),
		service: service,
	}

	s.mux.HandleFunc(PathHealthz, s.handleHealthz)
	s.mux.HandleFunc(PathConfig, s.handleConfig)
	s.mux.HandleFunc(PathOptimize, s.handleOptimize)
	s.mux.HandleFunc(PathOptimizerClass, s.patch(s.handleOptimizerClass))
	s.mux.HandleFunc(PathOptimizerArgs, s.patch(s.handleOptimizerArgs))
	s.mux.HandleFunc(PathOptimizerKwargs, s.patch(s.handleOptimizerKwargs))
	s.mux.HandleFunc(PathTermination, s.patch(s.handleTermination))
	s.mux.HandleFunc(PathPathLength, s.patch(s.handlePathLength))
	s.mux.HandleFunc(PathPathSample, s.patch(s.handlePathSample))
	if c := service.Metrics(); c != nil {
		s.mux.Handle(PathMetrics, c.Handler())
	}

	return s
}

// Handler returns the mux wrapped with request ID, logging and metrics
func (s *HTTPServer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(RequestIDHeader)
		if !utils.ValidRequestID(id) {
			id = utils.GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rec, r)

		d := time.Since(start)
		if c := s.service.Metrics(); c != nil {
			c.ObserveRequest(metrics.TransportHTTP, endpointLabel(r.URL.Path), rec.status, d)
		}
		logger.Debug("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", d,
		)
	})
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleConfig handles GET /config
func (s *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.service.Config())
}

// handleOptimize handles GET /opt_norms
func (s *HTTPServer) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	res, err := s.service.Optimize(r.Context())
	if err != nil {
		s.fail(w, PathOptimize, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ResultView(res))
}

// patch restricts a mutation handler to PATCH and turns its error into a response
func (s *HTTPServer) patch(h func(r *http.Request, body []byte) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			s.fail(w, r.URL.Path, &ValidationError{Field: "body", Err: err})
			return
		}
		if err := h(r, body); err != nil {
			s.fail(w, r.URL.Path, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{})
	}
}

// handleOptimizerClass handles PATCH /opt_cls
func (s *HTTPServer) handleOptimizerClass(_ *http.Request, body []byte) error {
	return s.service.SetOptimizerClass(unquote(string(body)))
}

// handleOptimizerArgs handles PATCH /opt_args
func (s *HTTPServer) handleOptimizerArgs(r *http.Request, body []byte) error {
	v, err := decodeJSON(r, FieldOptimizerArgs, body)
	if err != nil {
		return err
	}
	args, ok := v.([]any)
	if !ok {
		return &ValidationError{Field: FieldOptimizerArgs, Err: fmt.Errorf("expected a JSON array, got %s", jsonKind(v))}
	}
	return s.service.SetOptimizerArgs(args)
}

// handleOptimizerKwargs handles PATCH /opt_kwargs
func (s *HTTPServer) handleOptimizerKwargs(r *http.Request, body []byte) error {
	kwargs, err := decodeObject(r, FieldOptimizerKwargs, body)
	if err != nil {
		return err
	}
	return s.service.SetOptimizerKwargs(kwargs)
}

// handleTermination handles PATCH /term_dict
func (s *HTTPServer) handleTermination(r *http.Request, body []byte) error {
	term, err := decodeObject(r, FieldTermination, body)
	if err != nil {
		return err
	}
	return s.service.SetTermination(term)
}

// handlePathLength handles PATCH /path_length
func (s *HTTPServer) handlePathLength(_ *http.Request, body []byte) error {
	n, err := ParsePathValue(FieldPathLength, string(body))
	if err != nil {
		return err
	}
	s.service.SetPathLength(n)
	return nil
}

// handlePathSample handles PATCH /path_sample
func (s *HTTPServer) handlePathSample(_ *http.Request, body []byte) error {
	n, err := ParsePathValue(FieldPathSample, string(body))
	if err != nil {
		return err
	}
	s.service.SetPathSample(n)
	return nil
}

func (s *HTTPServer) fail(w http.ResponseWriter, endpoint string, err error) {
	status := httpStatus(err)
	logger.Warn("request failed", "endpoint", endpoint, "status", status, "error", err)
	s.writeError(w, status, s.service.Describe(err))
}

// Helper functions

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}

func decodeObject(r *http.Request, field string, body []byte) (map[string]any, error) {
	v, err := decodeJSON(r, field, body)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ValidationError{Field: field, Err: fmt.Errorf("expected a JSON object, got %s", jsonKind(v))}
	}
	return obj, nil
}

// decodeJSON requires a JSON content type and a well-formed body
func decodeJSON(r *http.Request, field string, body []byte) (any, error) {
	ct := r.Header.Get("Content-Type")
	if !isJSONContentType(ct) {
		return nil, &MediaTypeError{Field: field, ContentType: ct}
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, &ValidationError{Field: field, Err: fmt.Errorf("malformed JSON: %w", err)}
	}
	return v, nil
}

func isJSONContentType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/json" || (strings.HasPrefix(mt, "application/") && strings.HasSuffix(mt, "+json"))
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case float64:
		return "a number"
	case string:
		return "a string"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func endpointLabel(path string) string {
	if knownPaths[path] {
		return path
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
