package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsGauge counts live websocket connections across all rooms.
	ConnectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "messly_ws_connections",
		Help: "Live websocket connections.",
	})

	// RoomsGauge counts rooms with at least one live connection.
	RoomsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "messly_ws_rooms",
		Help: "Rooms with at least one live connection.",
	})

	// BroadcastsTotal counts room fan-outs, regardless of member count.
	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messly_ws_broadcasts_total",
		Help: "Broadcast envelopes fanned out to rooms.",
	})

	// DroppedSendsTotal counts frames dropped because a client's send buffer
	// was full.
	DroppedSendsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messly_ws_dropped_sends_total",
		Help: "Frames dropped due to a full per-connection send buffer.",
	})

	// MessagesTotal counts persisted messages by kind (text, file, system).
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messly_messages_total",
		Help: "Messages persisted, by kind.",
	}, []string{"kind"})
)
