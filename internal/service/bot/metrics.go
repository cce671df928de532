package bot

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	botMessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clean_care_bot_messages_total",
			Help: "Bot messages sent, by chat type and step.",
		},
		[]string{"chat_type", "step"},
	)
	botDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clean_care_bot_decisions_total",
			Help: "Orchestrator outcomes for citizen messages.",
		},
		[]string{"chat_type", "outcome"},
	)
	botStateConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clean_care_bot_state_conflicts_total",
			Help: "Conversation state writes that lost a version check.",
		},
		[]string{"chat_type"},
	)
)

func init() {
	prometheus.MustRegister(botMessagesSent, botDecisions, botStateConflicts)
}

func observeDecision(d Decision) {
	botDecisions.WithLabelValues(string(d.ChatType), string(d.Outcome)).Inc()
	if d.Outcome == OutcomeSent {
		botMessagesSent.WithLabelValues(string(d.ChatType), strconv.Itoa(d.Step)).Inc()
	}
}
