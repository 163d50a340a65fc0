/*
Package chat contains the relay core: connection handles, the room registry,
the event dispatcher, presence notifications and room fan-out.

This file defines the wire format. Inbound frames are JSON objects keyed by a
"type" field; outbound events mirror them with a server timestamp.
*/
package chat

import (
	"bytes"
	"encoding/json"
	"time"
)

// EventType names an inbound or outbound event.
type EventType string

const (
	// TypeJoin is sent by a client to enter a room.
	TypeJoin EventType = "join"

	// TypeJoined acknowledges a join to the joining client only.
	TypeJoined EventType = "joined"

	// TypePresence announces a member joining or leaving.
	TypePresence EventType = "presence"

	// TypeChat carries a chat message.
	TypeChat EventType = "chat"

	// TypeTyping carries a typing indicator.
	TypeTyping EventType = "typing"

	// TypeReaction carries an opaque reaction payload.
	TypeReaction EventType = "reaction"
)

// Presence event names.
const (
	PresenceJoin  = "join"
	PresenceLeave = "leave"
)

// DefaultRoomID is used when a join carries no usable roomId.
const DefaultRoomID = "general"

// inboundFrame is the union of every inbound field. Client-owned values stay
// raw so they can be echoed without reinterpretation; an absent field decodes
// to a nil RawMessage and is omitted again on the way out.
type inboundFrame struct {
	Type     EventType       `json:"type"`
	RoomID   any             `json:"roomId"`
	User     json.RawMessage `json:"user"`
	Message  json.RawMessage `json:"message"`
	UserID   json.RawMessage `json:"userId"`
	UserName json.RawMessage `json:"userName"`
	IsTyping any             `json:"isTyping"`
	Payload  json.RawMessage `json:"payload"`
}

// JoinedEvent is the unicast acknowledgment of a join.
type JoinedEvent struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"roomId"`
}

// PresenceEvent reports a member joining or leaving a room.
type PresenceEvent struct {
	Type  EventType       `json:"type"`
	Event string          `json:"event"`
	User  json.RawMessage `json:"user"`
	At    int64           `json:"at"`
}

// ChatEvent relays a chat message.
type ChatEvent struct {
	Type    EventType       `json:"type"`
	Message json.RawMessage `json:"message,omitempty"`
	At      int64           `json:"at"`
}

// TypingEvent relays a typing indicator.
type TypingEvent struct {
	Type     EventType       `json:"type"`
	UserID   json.RawMessage `json:"userId,omitempty"`
	UserName json.RawMessage `json:"userName,omitempty"`
	IsTyping bool            `json:"isTyping"`
	At       int64           `json:"at"`
}

// ReactionEvent relays an opaque reaction payload.
type ReactionEvent struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      int64           `json:"at"`
}

// epochMillis converts t to a millisecond Unix timestamp.
func epochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// encodeEvent serializes an outbound event without HTML escaping, so relayed
// client fields keep their original characters.
func encodeEvent(event any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(event); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// roomIDFromFrame returns the raw roomId when it is a non-empty string.
func roomIDFromFrame(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// truthy follows JSON truthiness: null, false, 0 and "" are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}
