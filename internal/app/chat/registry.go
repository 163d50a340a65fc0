/*
Package chat contains the relay core: connection handles, the room registry,
the event dispatcher, presence notifications and room fan-out.

This file defines the Registry, the single owner of the room -> members map.
*/
package chat

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"roomrelay/internal/pkg/logx"
	"roomrelay/internal/pkg/metrics"
)

// NormalizeRoomID lower-cases raw and substitutes DefaultRoomID for an empty id.
func NormalizeRoomID(raw string) string {
	if raw == "" {
		return DefaultRoomID
	}
	return strings.ToLower(raw)
}

// Registry tracks which clients belong to which room.
//
// A client is in at most one room, and a room exists only while it has
// members. Every client's room back-reference is read and written under mu.
type Registry struct {
	// mu protects rooms and the room field of every registered client.
	mu sync.RWMutex

	// rooms maps a normalized room id to its member set.
	rooms map[string]map[*Client]struct{}

	logger zerolog.Logger
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logx.Component("Registry"),
	}
}

// Join moves c into roomID and returns the normalized room id. A client that
// is still in a room is removed from it within the same critical section, so
// Join on its own never leaves c in two rooms.
func (r *Registry) Join(c *Client, roomID string) string {
	room := NormalizeRoomID(roomID)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(c)

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		r.rooms[room] = members
		r.logger.Debug().Str("room_id", room).Msg("Room created.")
	}

	members[c] = struct{}{}
	c.room = room

	metrics.RoomsActive.Set(float64(len(r.rooms)))
	r.logger.Debug().
		Str("conn_id", c.ID).
		Str("room_id", room).
		Int("members", len(members)).
		Msg("Client joined room.")

	return room
}

// Leave removes c from its room and returns that room id, or "" if c was not
// in a room.
func (r *Registry) Leave(c *Client) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.leaveLocked(c)
}

func (r *Registry) leaveLocked(c *Client) string {
	room := c.room
	if room == "" {
		return ""
	}

	if members, ok := r.rooms[room]; ok {
		delete(members, c)

		if len(members) == 0 {
			delete(r.rooms, room)
			r.logger.Debug().Str("room_id", room).Msg("Room is empty. Removed.")
		}
	}

	c.room = ""

	metrics.RoomsActive.Set(float64(len(r.rooms)))
	r.logger.Debug().Str("conn_id", c.ID).Str("room_id", room).Msg("Client left room.")

	return room
}

// MembersOf returns a snapshot of the members of roomID, which must already be
// normalized. A missing room, or the empty id, yields nil.
func (r *Registry) MembersOf(roomID string) []*Client {
	if roomID == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	snapshot := make([]*Client, 0, len(members))
	for c := range members {
		snapshot = append(snapshot, c)
	}

	return snapshot
}

// RoomOf returns the room c currently belongs to, or "".
func (r *Registry) RoomOf(c *Client) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return c.room
}

// HasRoom reports whether the normalized roomID currently exists.
func (r *Registry) HasRoom(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomID]
	return ok
}

// Rooms returns the member count of every existing room.
func (r *Registry) Rooms() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int, len(r.rooms))
	for id, members := range r.rooms {
		out[id] = len(members)
	}

	return out
}

// RoomCount returns the number of existing rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}
