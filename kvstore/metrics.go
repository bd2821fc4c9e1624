package kvstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var getsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "causalkv_gets_total",
	Help: "Number of point lookups, by result",
}, []string{"result"})

var putsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "causalkv_puts_total",
	Help: "Number of puts, by result",
}, []string{"result"})

var listsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "causalkv_lists_total",
	Help: "Number of listings",
})

var conflictsSurfaced = promauto.NewCounter(prometheus.CounterOpts{
	Name: "causalkv_conflicts_surfaced_total",
	Help: "Number of lookups that resolved more than one concurrent value for a key",
})

var nodesResolved = promauto.NewCounter(prometheus.CounterOpts{
	Name: "causalkv_nodes_resolved_total",
	Help: "Number of pointer references resolved to nodes during traversal",
})

var pointersSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "causalkv_pointers_skipped_total",
	Help: "Number of pointer references to entries not yet replicated locally",
})

var putDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "causalkv_put_duration_seconds",
	Help:    "Time to build and append a node, including the wait for the put gate",
	Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
})
