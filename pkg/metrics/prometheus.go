package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "planbuilder"

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal     *prometheus.CounterVec
	tokensTotal       *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	toolCallsTotal    *prometheus.CounterVec
	toolSkippedTotal  *prometheus.CounterVec
	scrapeTotal       *prometheus.CounterVec
	scrapeDuration    *prometheus.HistogramVec
	lookupsTotal      *prometheus.CounterVec
	generationAttempt *prometheus.CounterVec
}

// NewPrometheusRecorder registers the planbuilder series on reg.
// A nil reg registers on the default registry.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of generation requests by model and status",
			},
			[]string{"model", "status", "error_type"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_tokens_total",
				Help:      "Estimated tokens sent to and received from the generation service",
			},
			[]string{"model", "type"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Duration of generation requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		toolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Envelope tool calls by tool and outcome",
			},
			[]string{"tool", "status"},
		),
		toolSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_skipped_total",
				Help:      "Envelope tool calls skipped because no handler is registered",
			},
			[]string{"tool"},
		),
		scrapeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scrape_requests_total",
				Help:      "Retrieval HTTP exchanges by stage and status code",
			},
			[]string{"stage", "code"},
		),
		scrapeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scrape_request_duration_seconds",
				Help:      "Duration of retrieval HTTP exchanges",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		lookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Completed lookups by outcome kind",
			},
			[]string{"outcome"},
		),
		generationAttempt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_attempts_total",
				Help:      "Generate-parse-render attempts by pipeline and result",
			},
			[]string{"pipeline", "status"},
		),
	}
}

func (p *PrometheusRecorder) ObserveRequest(model string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	p.requestsTotal.WithLabelValues(model, status, errorType).Inc()
	if success {
		p.tokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	p.requestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) ObserveToolCall(tool, status string) {
	if status == StatusSkipped {
		p.toolSkippedTotal.WithLabelValues(tool).Inc()
	}
	p.toolCallsTotal.WithLabelValues(tool, status).Inc()
}

func (p *PrometheusRecorder) ObserveScrape(stage string, statusCode int, duration time.Duration) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	p.scrapeTotal.WithLabelValues(stage, code).Inc()
	p.scrapeDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) ObserveLookup(kind string) {
	p.lookupsTotal.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) ObserveGenerationAttempt(label string, success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	p.generationAttempt.WithLabelValues(label, status).Inc()
}
