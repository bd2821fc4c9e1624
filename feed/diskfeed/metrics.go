package diskfeed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var entriesWritten = promauto.NewCounter(prometheus.CounterOpts{
	Name: "causalkv_diskfeed_entries_written_total",
	Help: "Number of entries appended or imported into disk feeds",
})

var bytesWritten = promauto.NewCounter(prometheus.CounterOpts{
	Name: "causalkv_diskfeed_bytes_written_total",
	Help: "Number of bytes written to disk feed segments, including headers",
})

var entriesRead = promauto.NewCounter(prometheus.CounterOpts{
	Name: "causalkv_diskfeed_entries_read_total",
	Help: "Number of entries read from disk feeds",
})

var segmentsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "causalkv_diskfeed_segments_created_total",
	Help: "Number of segment files created",
})
