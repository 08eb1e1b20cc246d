package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rideparty"

var (
	// Registry holds the application collectors; served at /metrics.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		},
		[]string{"method", "route"},
	)

	membershipOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "membership",
			Name:      "operations_total",
			Help:      "Membership operations by name and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "membership",
			Name:      "fallback_attempts_total",
			Help:      "Strategy attempts inside RPC fallback chains.",
		},
		[]string{"chain", "strategy", "outcome"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "notifications_total",
			Help:      "Notifications synthesized from change events.",
		},
		[]string{"type"},
	)

	changeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "change_events_total",
			Help:      "Change events received from the feed.",
		},
		[]string{"type", "outcome"},
	)

	wsClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "websocket_clients",
			Help:      "Currently connected websocket clients.",
		},
	)

	partiesEnded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "parties_ended_total",
			Help:      "Parties deactivated by the expiry sweeper.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		membershipOps,
		fallbacks,
		notifications,
		changeEvents,
		wsClients,
		partiesEnded,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one request. route should be the mux pattern, not the
// raw path, to keep label cardinality bounded.
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordMembership(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	membershipOps.WithLabelValues(operation, outcome).Inc()
}

func RecordFallback(chain, strategy, outcome string) {
	fallbacks.WithLabelValues(chain, strategy, outcome).Inc()
}

func RecordNotification(notificationType string) {
	notifications.WithLabelValues(notificationType).Inc()
}

func RecordChangeEvent(eventType, outcome string) {
	changeEvents.WithLabelValues(eventType, outcome).Inc()
}

func SetWebsocketClients(n int) {
	wsClients.Set(float64(n))
}

func AddPartiesEnded(n int) {
	partiesEnded.Add(float64(n))
}
