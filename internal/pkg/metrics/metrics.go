/*
Package metrics defines the Prometheus collectors exported by the relay and
the HTTP handler that serves them.
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roomrelay"

// Reasons an inbound frame can be dropped.
const (
	DropMalformed   = "malformed"
	DropUnjoined    = "unjoined"
	DropUnknownType = "unknown_type"
	DropRateLimited = "rate_limited"
)

// Reasons a fan-out delivery can be skipped.
const (
	SkipNotSendable = "not_sendable"
	SkipQueueFull   = "queue_full"
)

var (
	// ConnectionsActive is the number of open WebSocket connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Open WebSocket connections.",
	})

	// RoomsActive is the number of rooms with at least one member.
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rooms_active",
		Help:      "Rooms that currently have members.",
	})

	// FramesReceived counts inbound frames that were accepted, by event type.
	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_received_total",
		Help:      "Inbound frames handled, by event type.",
	}, []string{"type"})

	// FramesDropped counts inbound frames ignored by the dispatcher, by reason.
	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_dropped_total",
		Help:      "Inbound frames dropped without a response, by reason.",
	}, []string{"reason"})

	// Broadcasts counts fan-out calls that reached a non-empty room.
	Broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcasts_total",
		Help:      "Room broadcasts, by outbound event type.",
	}, []string{"type"})

	// Deliveries counts payloads enqueued for individual members.
	Deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Payloads queued to room members.",
	})

	// DeliveriesSkipped counts members skipped during fan-out, by reason.
	DeliveriesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_skipped_total",
		Help:      "Room members skipped during fan-out, by reason.",
	}, []string{"reason"})
)

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
