package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records Prometheus metrics for LLM generations.
type Recorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	costsTotal      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRecorder creates a metrics recorder registered against reg. Pass
// prometheus.DefaultRegisterer in production; tests use private registries so
// repeated construction does not collide.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM generations by model, agent, and status",
			},
			[]string{"model", "agent", "status"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total number of tokens used in LLM generations",
			},
			[]string{"model", "agent", "type"},
		),
		costsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_costs_total",
				Help: "Total estimated cost in USD for LLM generations",
			},
			[]string{"model", "agent"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of LLM generations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "agent"},
		),
	}
}

// ObserveGeneration records metrics for a completed generation.
func (r *Recorder) ObserveGeneration(
	model, agent string,
	promptTokens, completionTokens int,
	cost float64,
	success bool,
	duration time.Duration,
) {
	status := "success"
	if !success {
		status = "error"
	}

	r.requestsTotal.WithLabelValues(model, agent, status).Inc()

	if success {
		r.tokensTotal.WithLabelValues(model, agent, "prompt").Add(float64(promptTokens))
		r.tokensTotal.WithLabelValues(model, agent, "completion").Add(float64(completionTokens))
		r.costsTotal.WithLabelValues(model, agent).Add(cost)
	}

	r.requestDuration.WithLabelValues(model, agent).Observe(duration.Seconds())
}
