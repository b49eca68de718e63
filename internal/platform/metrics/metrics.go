package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "policy_admin"

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	quoteTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_transitions_total",
			Help:      "Quote workflow actions by outcome.",
		},
		[]string{"action", "outcome"},
	)
	resolverLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_lookups_total",
			Help:      "Caching resolver lookups by entity and cache result.",
		},
		[]string{"entity", "result"},
	)
	lockWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregate_lock_wait_seconds",
			Help:      "Time spent acquiring aggregate locks.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"aggregate_type", "outcome"},
	)
	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Aggregate events handed to the event bus.",
		},
		[]string{"event_type", "outcome"},
	)
	alertsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "system_alerts_fired_total",
			Help:      "System alerts raised by type and level.",
		},
		[]string{"alert_type", "level"},
	)
	numberPoolRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "number_pool_remaining",
			Help:      "Numbers left in a number pool at the last check.",
		},
		[]string{"tenant", "product", "environment", "kind"},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call twice.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpLatency, quoteTransitions, resolverLookups,
			lockWait, eventsPublished, alertsFired, numberPoolRemaining)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count and latency labelled by chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(srw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := strconv.Itoa(srw.statusCode)
		httpRequests.WithLabelValues(r.Method, route, status).Inc()
		httpLatency.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

func IncQuoteTransition(action, outcome string) {
	quoteTransitions.WithLabelValues(action, outcome).Inc()
}

func IncResolverLookup(entity string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	resolverLookups.WithLabelValues(entity, result).Inc()
}

func ObserveLockWait(aggregateType, outcome string, d time.Duration) {
	lockWait.WithLabelValues(aggregateType, outcome).Observe(d.Seconds())
}

func IncEventPublished(eventType, outcome string) {
	eventsPublished.WithLabelValues(eventType, outcome).Inc()
}

func IncAlertFired(alertType, level string) {
	alertsFired.WithLabelValues(alertType, level).Inc()
}

func SetNumberPoolRemaining(tenant, product, environment, kind string, remaining int64) {
	numberPoolRemaining.WithLabelValues(tenant, product, environment, kind).Set(float64(remaining))
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
