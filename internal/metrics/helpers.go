package metrics

import (
	"time"
)

// Label names
const (
	LabelTransport = "transport"
	LabelEndpoint  = "endpoint"
	LabelCode      = "code"
	LabelOptimizer = "optimizer"
	LabelOutcome   = "outcome"
	LabelField     = "field"
)

// Run outcomes
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

// Transports
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// RecordRunSuccess records a completed optimization run
func RecordRunSuccess(c *Collector, optimizer string, d time.Duration, evaluations int, alignment float64) {
	c.runs.WithLabelValues(optimizer, OutcomeOK).Inc()
	c.runDuration.WithLabelValues(optimizer).Observe(d.Seconds())
	c.runEvals.WithLabelValues(optimizer).Observe(float64(evaluations))
	c.runAlignment.WithLabelValues(optimizer).Set(alignment)
}

// RecordRunFailure records a run that did not produce a result
func RecordRunFailure(c *Collector, optimizer, outcome string, d time.Duration) {
	c.runs.WithLabelValues(optimizer, outcome).Inc()
	c.runDuration.WithLabelValues(optimizer).Observe(d.Seconds())
}
