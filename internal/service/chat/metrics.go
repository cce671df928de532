package chat

import "github.com/prometheus/client_golang/prometheus"

var rejectedMessages = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clean_care_chat_rejected_messages_total",
		Help: "Chat messages rejected by content checks, by chat type and reason.",
	},
	[]string{"chat_type", "reason"},
)

func init() {
	prometheus.MustRegister(rejectedMessages)
}
