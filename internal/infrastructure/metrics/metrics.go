package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapgrid",
			Subsystem: "chat_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "snapgrid",
			Subsystem: "chat_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Message counters
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapgrid",
			Subsystem: "chat_api",
			Name:      "messages_sent_total",
			Help:      "Total messages accepted on the send path",
		},
		[]string{"status"},
	)

	// Delivery channel connections
	DeliveryConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "snapgrid",
			Subsystem: "chat_api",
			Name:      "delivery_connections",
			Help:      "Currently connected websocket sessions",
		},
	)

	// Delivery channel events
	DeliveryEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapgrid",
			Subsystem: "chat_api",
			Name:      "delivery_events_total",
			Help:      "Events pushed over the delivery channel",
		},
		[]string{"event"},
	)

	// Dropped pushes (session send queue full)
	DeliveryDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "snapgrid",
			Subsystem: "chat_api",
			Name:      "delivery_dropped_total",
			Help:      "Pushes dropped because a session queue was full",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordMessageSent records a send-path outcome
func RecordMessageSent(status string) {
	MessagesSentTotal.WithLabelValues(status).Inc()
}

// RecordDelivery records a delivery-channel event fan-out
func RecordDelivery(event string) {
	DeliveryEventsTotal.WithLabelValues(event).Inc()
}
