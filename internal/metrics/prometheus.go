package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "loanwise"

var _ Recorder = (*PrometheusRecorder)(nil)

// PrometheusRecorder exports Recorder events as Prometheus collectors.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	predictions     *prometheus.CounterVec
	scoringDuration prometheus.Histogram
	persistFailures prometheus.Counter
	modelReloads    *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
	identityCache   *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
}

// NewPrometheus registers the application collectors, plus Go runtime and
// process collectors, on a fresh registry.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := &PrometheusRecorder{
		registry: reg,
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_scored_total",
			Help:      "Scored loan applications by risk tier.",
		}, []string{"tier"}),
		scoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_duration_seconds",
			Help:      "Model inference latency.",
			Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_persist_failures_total",
			Help:      "Predictions that were scored but could not be stored.",
		}),
		modelReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_reloads_total",
			Help:      "Model artifact load attempts by status.",
		}, []string{"status"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected credentials by reason.",
		}, []string{"reason"}),
		identityCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_cache_requests_total",
			Help:      "Identity cache lookups by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		p.predictions,
		p.scoringDuration,
		p.persistFailures,
		p.modelReloads,
		p.authFailures,
		p.identityCache,
		p.rateLimited,
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// IncPredictionScored counts a scored application by tier.
func (p *PrometheusRecorder) IncPredictionScored(tier string) {
	p.predictions.WithLabelValues(tier).Inc()
}

// ObserveScoringDuration records model inference time in seconds.
func (p *PrometheusRecorder) ObserveScoringDuration(duration time.Duration) {
	p.scoringDuration.Observe(duration.Seconds())
}

// IncPredictionPersistFailed counts scored predictions that were not stored.
func (p *PrometheusRecorder) IncPredictionPersistFailed() {
	p.persistFailures.Inc()
}

// IncModelReload counts artifact loads by status.
func (p *PrometheusRecorder) IncModelReload(status string) {
	p.modelReloads.WithLabelValues(status).Inc()
}

// IncAuthFailure counts rejected credentials by reason.
func (p *PrometheusRecorder) IncAuthFailure(reason string) {
	p.authFailures.WithLabelValues(reason).Inc()
}

// IncIdentityCacheHit counts identity cache hits.
func (p *PrometheusRecorder) IncIdentityCacheHit() {
	p.identityCache.WithLabelValues("hit").Inc()
}

// IncIdentityCacheMiss counts identity cache misses.
func (p *PrometheusRecorder) IncIdentityCacheMiss() {
	p.identityCache.WithLabelValues("miss").Inc()
}

// IncRateLimited counts throttled requests by scope.
func (p *PrometheusRecorder) IncRateLimited(scope string) {
	p.rateLimited.WithLabelValues(scope).Inc()
}
