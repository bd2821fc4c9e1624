package replication

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "causalkv_replication_messages_sent_total",
	Help: "Number of replication messages sent, by type",
}, []string{"type"})

var messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "causalkv_replication_messages_received_total",
	Help: "Number of replication messages received, by type",
}, []string{"type"})

var entriesImported = promauto.NewCounter(prometheus.CounterOpts{
	Name: "causalkv_replication_entries_imported_total",
	Help: "Number of feed entries imported from remote sessions",
})

var sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "causalkv_replication_sessions_total",
	Help: "Number of finished replication sessions, by result",
}, []string{"result"})
