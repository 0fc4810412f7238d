package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "agency_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	resolveTotal    *prometheus.CounterVec
	resolveLatency  *prometheus.HistogramVec
	resolveStatuses *prometheus.CounterVec
	resolveConflict prometheus.Gauge

	mutationTotal *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	forecastTotal *prometheus.CounterVec
)

// Init registers observability metrics. counter, when non-nil, backs a
// gauge with the number of stored cost standards.
func Init(counter RecordCounter, onError func(error)) {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method and status code",
			},
			[]string{"method", "code"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_latency_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)

		resolveTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cost_standard_resolve_total",
				Help: "Total cost standard resolutions by result",
			},
			[]string{"result"},
		)
		resolveLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "cost_standard_resolve_latency_seconds",
				Help:    "Cost standard resolution latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		resolveStatuses = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cost_standard_resolved_records_total",
				Help: "Resolved cost standard records by status",
			},
			[]string{"status"},
		)
		resolveConflict = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "cost_standard_conflicts",
				Help: "Group keys with more than one active standard in the last resolution",
			},
		)

		mutationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cost_standard_mutations_total",
				Help: "Cost standard create/update/delete operations by result",
			},
			[]string{"operation", "result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cost_standard_export_total",
				Help: "Total cost standard exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "cost_standard_export_latency_seconds",
				Help:    "Cost standard export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		forecastTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "forecast_estimates_total",
				Help: "Total staffing forecast estimates by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			resolveTotal,
			resolveLatency,
			resolveStatuses,
			resolveConflict,
			mutationTotal,
			exportTotal,
			exportLatency,
			forecastTotal,
		)

		if counter != nil {
			registerDBMetrics(counter, onError)
		}
	})
}

// ObserveHTTP records a served request.
func ObserveHTTP(method string, code int, duration time.Duration) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, statusCodeLabel(code)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method).Observe(duration.Seconds())
	}
}

// ObserveResolve records a resolution call and its status breakdown.
func ObserveResolve(result string, duration time.Duration, statuses map[string]int, conflicts int) {
	if result == "" {
		result = resultSuccess
	}
	if resolveTotal != nil {
		resolveTotal.WithLabelValues(result).Inc()
	}
	if resolveLatency != nil {
		resolveLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if resolveStatuses != nil {
		for status, count := range statuses {
			resolveStatuses.WithLabelValues(status).Add(float64(count))
		}
	}
	if resolveConflict != nil && result == resultSuccess {
		resolveConflict.Set(float64(conflicts))
	}
}

// IncMutation increments create/update/delete counters.
func IncMutation(operation, result string) {
	if operation == "" {
		operation = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if mutationTotal != nil {
		mutationTotal.WithLabelValues(operation, result).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncForecast increments forecast estimate counter.
func IncForecast(result string) {
	if result == "" {
		result = resultSuccess
	}
	if forecastTotal != nil {
		forecastTotal.WithLabelValues(result).Inc()
	}
}

func statusCodeLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
