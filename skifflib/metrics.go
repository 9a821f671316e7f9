package skifflib

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skiff_connections_opened_total",
			Help: "Total number of connections registered",
		},
	)

	connsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skiff_connections_closed_total",
			Help: "Total number of connections closed, by terminal cause",
		},
		[]string{"cause"},
	)

	connsAbandoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skiff_connections_abandoned_total",
			Help: "Connections destroyed with no handler to notify (registration timeout, liveness loss)",
		},
	)

	bytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skiff_read_bytes_total",
			Help: "Bytes received from all connections",
		},
	)

	bytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skiff_written_bytes_total",
			Help: "Bytes fully transmitted on all connections",
		},
	)

	writesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skiff_writes_rejected_total",
			Help: "Writes rejected by flow control, by reason",
		},
		[]string{"reason"},
	)
)
