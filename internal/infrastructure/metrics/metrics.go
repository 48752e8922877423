// Package metrics records prediction form submissions in Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromRecorder records submission outcomes and endpoint latency
type PromRecorder struct {
	submissions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	inFlight    prometheus.Gauge
}

// NewPromRecorder registers the form metrics on reg. If reg is nil, the
// default registerer is used. Collectors already registered are reused.
func NewPromRecorder(reg prometheus.Registerer) (*PromRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "silverform_submissions_total",
		Help: "Total number of prediction form submissions by outcome",
	}, []string{"outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "silverform_prediction_request_duration_seconds",
		Help:    "Time spent waiting for the prediction endpoint",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "silverform_submissions_in_flight",
		Help: "Number of submissions waiting for the prediction endpoint",
	})

	var err error
	if submissions, err = register(reg, submissions); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if inFlight, err = register(reg, inFlight); err != nil {
		return nil, err
	}

	return &PromRecorder{submissions: submissions, latency: latency, inFlight: inFlight}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// SubmissionStarted marks a request to the endpoint as in flight
func (r *PromRecorder) SubmissionStarted() {
	r.inFlight.Inc()
}

// SubmissionFinished records the outcome of a submission and its latency
func (r *PromRecorder) SubmissionFinished(outcome string, elapsed time.Duration) {
	r.inFlight.Dec()
	r.submissions.WithLabelValues(outcome).Inc()
	r.latency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// SubmissionRefused counts a submission rejected before reaching the endpoint
func (r *PromRecorder) SubmissionRefused(reason string) {
	r.submissions.WithLabelValues(reason).Inc()
}

// RegisterSessionGauge exposes the number of live form sessions, read from
// count at scrape time
func RegisterSessionGauge(reg prometheus.Registerer, count func() int) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "silverform_sessions",
		Help: "Number of form sessions currently held by the session store",
	}, func() float64 { return float64(count()) })

	if err := reg.Register(gauge); err != nil {
		return fmt.Errorf("failed to register session gauge: %w", err)
	}
	return nil
}
