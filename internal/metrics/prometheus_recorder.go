package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder against a Prometheus registry.
type PrometheusRecorder struct {
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	requestBuild  *prom.HistogramVec
	requestsTotal prom.Gauge
	buildOutcomes *prom.CounterVec
}

// NewPrometheusRecorder creates a recorder with its own registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prom.NewRegistry()
	r := &PrometheusRecorder{
		registry: registry,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "sitewright_stage_duration_seconds",
			Help:    "Duration of bootstrap stages.",
			Buckets: prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Name:    "sitewright_build_duration_seconds",
			Help:    "Duration of complete builds.",
			Buckets: prom.ExponentialBuckets(0.1, 2, 12),
		}),
		requestBuild: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "sitewright_request_build_duration_seconds",
			Help:    "Duration of per-request builds.",
			Buckets: prom.DefBuckets,
		}, []string{"route", "success"}),
		requestsTotal: prom.NewGauge(prom.GaugeOpts{
			Name: "sitewright_requests_total",
			Help: "Number of requests in the current build.",
		}),
		buildOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Name: "sitewright_build_outcomes_total",
			Help: "Build outcomes by result.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(r.stageDuration, r.buildDuration, r.requestBuild, r.requestsTotal, r.buildOutcomes)
	return r
}

func (r *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	r.buildDuration.Observe(d.Seconds())
}

func (r *PrometheusRecorder) ObserveRequestBuild(route string, d time.Duration, success bool) {
	r.requestBuild.WithLabelValues(route, strconv.FormatBool(success)).Observe(d.Seconds())
}

func (r *PrometheusRecorder) SetRequestsTotal(n int) {
	r.requestsTotal.Set(float64(n))
}

func (r *PrometheusRecorder) IncBuildOutcome(outcome string) {
	r.buildOutcomes.WithLabelValues(outcome).Inc()
}

// Handler returns the /metrics HTTP handler for this recorder's registry.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
