package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "normd"

// Collector holds the service metrics on its own registry so that several
// servers (and tests) in one process do not collide.
type Collector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runEvals      *prometheus.HistogramVec
	runAlignment  *prometheus.GaugeVec
	runsInFlight  prometheus.Gauge
	configChanges *prometheus.CounterVec
}

// NewCollector creates a collector with process and Go runtime metrics registered
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		// Labels: transport (http, grpc), endpoint, code
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Handled requests by transport, endpoint and status code",
		}, []string{LabelTransport, LabelEndpoint, LabelCode}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request handling latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		}, []string{LabelTransport, LabelEndpoint}),

		// Labels: optimizer, outcome (ok, invalid, failed)
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimization",
			Name:      "runs_total",
			Help:      "Optimization runs by optimizer and outcome",
		}, []string{LabelOptimizer, LabelOutcome}),

		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "optimization",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of optimization runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{LabelOptimizer}),

		runEvals: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "optimization",
			Name:      "evaluations",
			Help:      "Fitness evaluations per successful run",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}, []string{LabelOptimizer}),

		runAlignment: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "optimization",
			Name:      "last_alignment",
			Help:      "Alignment of the last successful run",
		}, []string{LabelOptimizer}),

		runsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "optimization",
			Name:      "in_flight",
			Help:      "Optimization runs currently executing",
		}),

		// Labels: field (opt_cls, opt_args, ...)
		configChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "mutations_total",
			Help:      "Accepted configuration mutations by field",
		}, []string{LabelField}),
	}

	c.registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		c.requests,
		c.requestDuration,
		c.runs,
		c.runDuration,
		c.runEvals,
		c.runAlignment,
		c.runsInFlight,
		c.configChanges,
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveRequest records one handled request
func (c *Collector) ObserveRequest(transport, endpoint string, code int, d time.Duration) {
	c.requests.WithLabelValues(transport, endpoint, strconv.Itoa(code)).Inc()
	c.requestDuration.WithLabelValues(transport, endpoint).Observe(d.Seconds())
}

// ObserveMutation records an accepted configuration change
func (c *Collector) ObserveMutation(field string) {
	c.configChanges.WithLabelValues(field).Inc()
}

// RunStarted marks the start of an optimization run and returns a function
// that records its end.
func (c *Collector) RunStarted() func() {
	c.runsInFlight.Inc()
	return c.runsInFlight.Dec
}
