package peer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "causalkv_peer_cache_hits_total",
	Help: "Number of node reads served from the peer cache",
})

var cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "causalkv_peer_cache_misses_total",
	Help: "Number of node reads that had to decode a feed entry",
})
