package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	cacheLookups      *prom.CounterVec
	invalidations     prom.Counter
	processorDuration *prom.HistogramVec
	processorResults  *prom.CounterVec
	renderDuration    prom.Histogram
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.cacheLookups = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tessera",
			Name:      "chain_cache_lookups_total",
			Help:      "Configuration chain cache lookups by result",
		}, []string{"result"})
		pr.invalidations = prom.NewCounter(prom.CounterOpts{
			Namespace: "tessera",
			Name:      "chain_cache_invalidations_total",
			Help:      "Whole-cache invalidations",
		})
		pr.processorDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "tessera",
			Name:      "processor_duration_seconds",
			Help:      "Duration of individual processor invocations",
			Buckets:   prom.DefBuckets,
		}, []string{"processor"})
		pr.processorResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tessera",
			Name:      "processor_results_total",
			Help:      "Processor invocations by outcome",
		}, []string{"processor", "result"})
		pr.renderDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "tessera",
			Name:      "render_duration_seconds",
			Help:      "Total component render duration",
			Buckets:   prom.DefBuckets,
		})
		reg.MustRegister(pr.cacheLookups, pr.invalidations, pr.processorDuration, pr.processorResults, pr.renderDuration)
	})
	return pr
}

func (p *PrometheusRecorder) IncCache(result CacheResult) {
	if p == nil || p.cacheLookups == nil {
		return
	}
	p.cacheLookups.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncInvalidation() {
	if p == nil || p.invalidations == nil {
		return
	}
	p.invalidations.Inc()
}

func (p *PrometheusRecorder) ObserveProcessor(name string, d time.Duration, ok bool) {
	if p == nil || p.processorDuration == nil {
		return
	}
	res := "failed"
	if ok {
		res = "success"
	}
	p.processorDuration.WithLabelValues(name).Observe(d.Seconds())
	p.processorResults.WithLabelValues(name, res).Inc()
}

func (p *PrometheusRecorder) ObserveRender(d time.Duration) {
	if p == nil || p.renderDuration == nil {
		return
	}
	p.renderDuration.Observe(d.Seconds())
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
