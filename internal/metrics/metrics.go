// Package metrics holds the Prometheus collectors of the form server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Submission outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeRejected   = "rejected"
	OutcomeInProgress = "in_progress"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	Registry *prometheus.Registry

	optionLoads     *prometheus.CounterVec
	optionFailures  prometheus.Counter
	optionCount     *prometheus.GaugeVec
	loadDuration    prometheus.Histogram
	submissions     *prometheus.CounterVec
	submitDuration  prometheus.Histogram
	newValues       *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	publishFailures prometheus.Counter
}

// New creates the collectors together with Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		optionLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "finform_option_loads_total",
			Help: "Option loads by result.",
		}, []string{"result"}),
		optionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "finform_option_fetch_failures_total",
			Help: "Option fetches that failed and fell back to empty lists.",
		}),
		optionCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "finform_options",
			Help: "Number of options shown per field after the last load.",
		}, []string{"field"}),
		loadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "finform_option_load_duration_seconds",
			Help:    "Duration of option fetches.",
			Buckets: prometheus.DefBuckets,
		}),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "finform_submissions_total",
			Help: "Submissions by outcome.",
		}, []string{"outcome"}),
		submitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "finform_submit_duration_seconds",
			Help:    "Duration of submissions to the entry sink.",
			Buckets: prometheus.DefBuckets,
		}),
		newValues: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "finform_new_values_total",
			Help: "Newly authored option values sent with a submission.",
		}, []string{"field"}),
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "finform_cache_hits_total",
			Help: "Total cache hits.",
		}, []string{"cache"}),
		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "finform_cache_misses_total",
			Help: "Total cache misses.",
		}, []string{"cache"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "finform_http_requests_total",
			Help: "HTTP requests by method and status class.",
		}, []string{"method", "code"}),
		publishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "finform_event_publish_failures_total",
			Help: "Entry events that could not be published.",
		}),
	}
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveOptionLoad records one fetch of the option source.
func (m *Metrics) ObserveOptionLoad(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.loadDuration.Observe(d.Seconds())
	if err != nil {
		m.optionLoads.WithLabelValues(OutcomeError).Inc()
		m.optionFailures.Inc()
		return
	}
	m.optionLoads.WithLabelValues(OutcomeSuccess).Inc()
}

// SetOptionCount records the size of a field's normalized list.
func (m *Metrics) SetOptionCount(field string, n int) {
	if m == nil {
		return
	}
	m.optionCount.WithLabelValues(field).Set(float64(n))
}

// ObserveSubmission records a submission outcome.
func (m *Metrics) ObserveSubmission(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.submitDuration.Observe(d.Seconds())
	}
}

// IncNewValue counts a newly authored value for field.
func (m *Metrics) IncNewValue(field string) {
	if m == nil {
		return
	}
	m.newValues.WithLabelValues(field).Inc()
}

// IncCacheHit increments the cache hit counter.
func (m *Metrics) IncCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncCacheMiss increments the cache miss counter.
func (m *Metrics) IncCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncHTTPRequest counts a served request. code is the status class ("2xx").
func (m *Metrics) IncHTTPRequest(method, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, code).Inc()
}

// IncPublishFailure counts an entry event that could not be published.
func (m *Metrics) IncPublishFailure() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

// SubmissionCount returns the current count for outcome.
func (m *Metrics) SubmissionCount(outcome string) float64 {
	return counterValue(m.submissions.WithLabelValues(outcome))
}

// OptionFailureCount returns the number of failed option fetches.
func (m *Metrics) OptionFailureCount() float64 {
	return counterValue(m.optionFailures)
}

func counterValue(c prometheus.Counter) float64 {
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		return 0
	}
	if out.Counter != nil && out.Counter.Value != nil {
		return *out.Counter.Value
	}
	return 0
}
