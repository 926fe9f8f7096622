// Package metrics provides Prometheus instrumentation for the chat client.
// It exposes a connectivity gauge, counters for event throughput and
// reconnections, and gauges for the sizes of the derived state stores.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connected reports transport connectivity: 1 while connected, 0 while
	// disconnected.
	Connected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plpchat_connected",
		Help: "Whether the client currently holds an open relay connection",
	})

	// EventsReceived counts inbound relay events, labeled by event name.
	EventsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plpchat_events_received_total",
		Help: "Total number of relay events received",
	}, []string{"event"})

	// EventsSent counts outbound events, labeled by event name.
	EventsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plpchat_events_sent_total",
		Help: "Total number of events emitted to the relay",
	}, []string{"event"})

	// Reconnects counts successful re-identifications after a drop.
	Reconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plpchat_reconnects_total",
		Help: "Total number of reconnections after the initial join",
	})

	// Notifications counts alerts delivered to the notification sink.
	Notifications = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plpchat_notifications_total",
		Help: "Total number of notification alerts triggered",
	})

	// MessagesStored tracks the size of the append-only message log.
	MessagesStored = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plpchat_messages_stored",
		Help: "Current number of records in the message log",
	})

	// PresenceUsers tracks the size of the presence directory.
	PresenceUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plpchat_presence_users",
		Help: "Current number of participants in the presence directory",
	})
)

func init() {
	prometheus.MustRegister(
		Connected,
		EventsReceived,
		EventsSent,
		Reconnects,
		Notifications,
		MessagesStored,
		PresenceUsers,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
