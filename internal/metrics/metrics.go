// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"micropatrons/internal/util"
)

// Transfer outcomes used as the "outcome" label.
const (
	OutcomeSuccess             = "success"
	OutcomeValidation          = "validation"
	OutcomeNotFound            = "not_found"
	OutcomeInsufficientBalance = "insufficient_balance"
	OutcomeInfrastructure      = "infrastructure"
)

// Recorder publishes ledger metrics to a Prometheus registry.
type Recorder struct {
	registry  *prometheus.Registry
	transfers *prometheus.CounterVec
	duration  prometheus.Histogram
	units     prometheus.Counter
}

// NewRecorder registers the ledger collectors on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "micropatrons",
			Name:      "transfers_total",
			Help:      "Transfer attempts by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "micropatrons",
			Name:      "transfer_duration_seconds",
			Help:      "Time spent validating and applying a transfer.",
			Buckets:   prometheus.DefBuckets,
		}),
		units: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "micropatrons",
			Name:      "transferred_units_total",
			Help:      "µPatrons moved by successful transfers.",
		}),
	}
	r.registry.MustRegister(r.transfers, r.duration, r.units)
	r.registry.MustRegister(prometheus.NewGoCollector())
	return r
}

// ObserveTransfer records one transfer attempt.
func (r *Recorder) ObserveTransfer(err error, amount int64, elapsed time.Duration) {
	outcome := Outcome(err)
	r.transfers.WithLabelValues(outcome).Inc()
	r.duration.Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess {
		r.units.Add(float64(amount))
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Outcome classifies a transfer error into a label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case util.IsValidation(err):
		return OutcomeValidation
	case util.IsError(err, util.ErrAccountNotFound), util.IsError(err, util.ErrNotFound):
		return OutcomeNotFound
	case util.IsError(err, util.ErrInsufficientBalance):
		return OutcomeInsufficientBalance
	default:
		return OutcomeInfrastructure
	}
}
