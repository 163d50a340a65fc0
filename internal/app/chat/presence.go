package chat

import "encoding/json"

// announceJoin tells room that u has just joined. The joiner is a member by
// now and receives its own presence event.
func (d *Dispatcher) announceJoin(room string, u json.RawMessage) {
	d.Broadcast(room, PresenceEvent{
		Type:  TypePresence,
		Event: PresenceJoin,
		User:  u,
		At:    d.timestamp(),
	})
}

// announceLeave tells the remaining members of room that u has left. room and
// u must be captured before the Registry drops the membership.
func (d *Dispatcher) announceLeave(room string, u json.RawMessage) {
	d.Broadcast(room, PresenceEvent{
		Type:  TypePresence,
		Event: PresenceLeave,
		User:  u,
		At:    d.timestamp(),
	})
}
