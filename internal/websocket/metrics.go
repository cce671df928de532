package websocket

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clean_care_ws_connections",
			Help: "Current number of active websocket connections.",
		},
	)
	wsRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clean_care_ws_rooms",
			Help: "Current number of websocket rooms.",
		},
	)
	wsMessagesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clean_care_ws_messages_delivered_total",
			Help: "Total websocket messages delivered to clients.",
		},
	)
	wsPublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clean_care_ws_publish_failures_total",
			Help: "Room publishes that could not be relayed, by transport.",
		},
		[]string{"transport"},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsRooms, wsMessagesDelivered, wsPublishFailures)
}

func incConnections() {
	wsConnections.Inc()
}

func decConnections() {
	wsConnections.Dec()
}

func setRooms(count int) {
	wsRooms.Set(float64(count))
}

func addDelivered(count int) {
	wsMessagesDelivered.Add(float64(count))
}

func publishFailed(transport string) {
	wsPublishFailures.WithLabelValues(transport).Inc()
}
