package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registrysync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "registrysync",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "registrysync",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Provider fetch metrics
	fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registrysync",
			Subsystem: "fetch",
			Name:      "total",
			Help:      "Total number of provider fetches per resource kind",
		},
		[]string{"kind", "status"},
	)

	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "registrysync",
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Duration of provider fetches in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	// Registry sync metrics
	syncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registrysync",
			Subsystem: "registry",
			Name:      "sync_total",
			Help:      "Total number of registry syncs per resource kind",
		},
		[]string{"kind", "status"},
	)

	syncedResources = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "registrysync",
			Subsystem: "registry",
			Name:      "resources_count",
			Help:      "Number of resources synced per kind in the last run",
		},
		[]string{"kind"},
	)

	// Webhook metrics
	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registrysync",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Total number of webhook events by outcome",
		},
		[]string{"event", "outcome"},
	)

	// Dispatcher metrics
	dispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "registrysync",
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Number of tasks waiting in the dispatch queue",
		},
	)

	dispatchTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registrysync",
			Subsystem: "dispatch",
			Name:      "tasks_total",
			Help:      "Total number of dispatched background tasks by outcome",
		},
		[]string{"outcome"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordFetch records a provider fetch for one resource kind
func RecordFetch(kind, status string, duration time.Duration) {
	fetchTotal.WithLabelValues(kind, status).Inc()
	fetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordSync records a registry sync for one resource kind
func RecordSync(kind, status string) {
	syncTotal.WithLabelValues(kind, status).Inc()
}

// SetSyncedResources sets the gauge for resources synced per kind
func SetSyncedResources(kind string, count float64) {
	syncedResources.WithLabelValues(kind).Set(count)
}

// RecordWebhookEvent records a webhook event outcome
func RecordWebhookEvent(event, outcome string) {
	webhookEventsTotal.WithLabelValues(event, outcome).Inc()
}

// SetDispatchQueueDepth sets the dispatch queue depth gauge
func SetDispatchQueueDepth(depth float64) {
	dispatchQueueDepth.Set(depth)
}

// RecordDispatchTask records a completed background task outcome
func RecordDispatchTask(outcome string) {
	dispatchTasksTotal.WithLabelValues(outcome).Inc()
}
