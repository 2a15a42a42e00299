package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crms",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Client-facing requests broken down by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crms",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Client-facing request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crms",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Backend calls broken down by method and status class.",
	}, []string{"method", "status"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crms",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Backend call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	gatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crms",
		Subsystem: "gateway",
		Name:      "errors_total",
		Help:      "Gateway operation failures broken down by entity, operation and kind.",
	}, []string{"entity", "op", "kind"})

	listCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crms",
		Subsystem: "listsync",
		Name:      "cache_requests_total",
		Help:      "List synchronizer lookups broken down by entity and hit/miss.",
	}, []string{"entity", "result"})

	auditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crms",
		Subsystem: "audit",
		Name:      "write_failures_total",
		Help:      "Audit entries that could not be stored.",
	})
)

// ObserveHTTP records one client-facing request.
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveUpstream records one backend call. Status 0 means a transport failure.
func ObserveUpstream(method string, status int, elapsed time.Duration) {
	upstreamRequests.WithLabelValues(method, statusClass(status)).Inc()
	upstreamDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func RecordGatewayError(entity, op, kind string) {
	if kind == "" {
		kind = "other"
	}
	gatewayErrors.WithLabelValues(entity, op, kind).Inc()
}

func RecordListCache(entity string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	listCache.WithLabelValues(entity, result).Inc()
}

func RecordAuditFailure() {
	auditFailures.Inc()
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
