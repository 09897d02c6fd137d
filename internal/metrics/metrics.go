package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Signal lifecycle metrics
	signalsIngested    *prometheus.CounterVec
	signalTransitions  *prometheus.CounterVec
	signalsEvicted     prometheus.Counter
	storeSignals       prometheus.Gauge
	notifications      *prometheus.CounterVec
	feedDropped        *prometheus.CounterVec
	feedConnected      prometheus.Gauge
	priceTicksReceived *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.signalsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orion_signals_ingested_total",
			Help: "Total number of signal messages applied to the store",
		},
		[]string{"source"},
	)
	r.signalTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orion_signal_transitions_total",
			Help: "Signal status transitions out of pending",
		},
		[]string{"status", "cause"},
	)
	r.signalsEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orion_signals_evicted_total",
			Help: "Signals evicted by the capacity bound",
		},
	)
	r.storeSignals = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orion_store_signals",
			Help: "Number of signals currently held",
		},
	)
	r.notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orion_notifications_total",
			Help: "Notification deliveries by notifier and outcome",
		},
		[]string{"notifier", "status"},
	)
	r.feedDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orion_feed_messages_dropped_total",
			Help: "Feed messages dropped at the boundary",
		},
		[]string{"reason"},
	)
	r.feedConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orion_feed_connected",
			Help: "1 when the live feed is connected",
		},
	)
	r.priceTicksReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orion_price_ticks_total",
			Help: "Price ticks received per symbol",
		},
		[]string{"symbol"},
	)

	reg.MustRegister(r.signalsIngested)
	reg.MustRegister(r.signalTransitions)
	reg.MustRegister(r.signalsEvicted)
	reg.MustRegister(r.storeSignals)
	reg.MustRegister(r.notifications)
	reg.MustRegister(r.feedDropped)
	reg.MustRegister(r.feedConnected)
	reg.MustRegister(r.priceTicksReceived)

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordIngested counts a signal message applied from a source.
func (r *Registry) RecordIngested(source string) {
	r.signalsIngested.WithLabelValues(source).Inc()
}

// RecordTransition counts a status transition; cause is "update" or "expiry".
func (r *Registry) RecordTransition(status, cause string) {
	r.signalTransitions.WithLabelValues(status, cause).Inc()
}

// RecordEvicted counts evicted signals.
func (r *Registry) RecordEvicted(n int) {
	r.signalsEvicted.Add(float64(n))
}

// SetStoreSize sets the current store size.
func (r *Registry) SetStoreSize(n int) {
	r.storeSignals.Set(float64(n))
}

// RecordNotification records a delivery outcome.
func (r *Registry) RecordNotification(notifier, status string) {
	r.notifications.WithLabelValues(notifier, status).Inc()
}

// RecordDropped counts a feed message dropped at the boundary.
func (r *Registry) RecordDropped(reason string) {
	r.feedDropped.WithLabelValues(reason).Inc()
}

// SetFeedConnected flips the connection gauge.
func (r *Registry) SetFeedConnected(connected bool) {
	if connected {
		r.feedConnected.Set(1)
		return
	}
	r.feedConnected.Set(0)
}

// RecordTick counts a price tick.
func (r *Registry) RecordTick(symbol string) {
	r.priceTicksReceived.WithLabelValues(symbol).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
