package websocket

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gm_relay_ws_connections",
			Help: "Current number of active websocket connections.",
		},
	)
	wsGroups = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gm_relay_ws_subscriber_groups",
			Help: "Current number of room subscriber groups.",
		},
	)
	wsFramesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gm_relay_ws_frames_delivered_total",
			Help: "Total broadcast frames delivered to clients.",
		},
	)
	wsEventsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gm_relay_ws_events_handled_total",
			Help: "Total inbound events handled, by event type.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsGroups, wsFramesDelivered, wsEventsHandled)
}

func incConnections() {
	wsConnections.Inc()
}

func decConnections() {
	wsConnections.Dec()
}

func setGroups(count int) {
	wsGroups.Set(float64(count))
}

func addDelivered(count int) {
	wsFramesDelivered.Add(float64(count))
}

func countEvent(eventType string) {
	wsEventsHandled.WithLabelValues(eventType).Inc()
}
