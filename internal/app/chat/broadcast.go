/*
Package chat contains the relay core: connection handles, the room registry,
the event dispatcher, presence notifications and room fan-out.

This file implements room fan-out.
*/
package chat

import "roomrelay/internal/pkg/metrics"

// Event is an outbound event that can be fanned out to a room.
type Event interface {
	EventType() EventType
}

func (e PresenceEvent) EventType() EventType { return e.Type }
func (e ChatEvent) EventType() EventType { return e.Type }
func (e TypingEvent) EventType() EventType { return e.Type }
func (e ReactionEvent) EventType() EventType { return e.Type }

// Broadcast serializes event once and queues the same bytes to every member of
// roomID present at call time. Members that are closed or whose queue is full
// are skipped; one member's failure never affects the others and the Registry
// is not modified. It returns the number of members the payload was queued to.
func (d *Dispatcher) Broadcast(roomID string, event Event) int {
	members := d.registry.MembersOf(roomID)
	if len(members) == 0 {
		return 0
	}

	payload, err := encodeEvent(event)
	if err != nil {
		d.logger.Error().Err(err).Str("event_type", string(event.EventType())).Msg("Error marshaling event for broadcast.")
		return 0
	}

	metrics.Broadcasts.WithLabelValues(string(event.EventType())).Inc()

	delivered := 0
	for _, member := range members {
		if !member.IsSendable() {
			metrics.DeliveriesSkipped.WithLabelValues(metrics.SkipNotSendable).Inc()
			continue
		}

		if !member.Send(payload) {
			metrics.DeliveriesSkipped.WithLabelValues(metrics.SkipQueueFull).Inc()
			d.logger.Warn().
				Str("conn_id", member.ID).
				Str("room_id", roomID).
				Msg("Client send queue full, dropping payload.")
			continue
		}

		delivered++
	}

	metrics.Deliveries.Add(float64(delivered))

	d.logger.Debug().
		Str("room_id", roomID).
		Str("event_type", string(event.EventType())).
		Int("members", len(members)).
		Int("delivered", delivered).
		Msg("Broadcast finished.")

	return delivered
}
