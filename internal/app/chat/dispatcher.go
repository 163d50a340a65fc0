/*
Package chat contains the relay core: connection handles, the room registry,
the event dispatcher, presence notifications and room fan-out.

This file defines the Dispatcher, which interprets inbound frames. The
protocol is best-effort: malformed frames, unknown types, frames sent before a
join and relayed frames over the optional per-connection rate are dropped
without a reply.
*/
package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roomrelay/internal/app/user"
	"roomrelay/internal/pkg/logx"
	"roomrelay/internal/pkg/metrics"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces the wall clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// Dispatcher routes frames from clients to the Registry and to room fan-out.
// Frames of a single client must be passed in order from one goroutine;
// frames of different clients may be handled concurrently.
type Dispatcher struct {
	registry *Registry
	now      func() time.Time

	// mu protects clients.
	mu sync.Mutex

	// clients holds every connected client so Shutdown can close them.
	clients map[*Client]struct{}

	logger zerolog.Logger
}

// NewDispatcher creates a Dispatcher operating on registry.
func NewDispatcher(registry *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		now:      time.Now,
		clients:  make(map[*Client]struct{}),
		logger:   logx.Component("Dispatcher"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Registry returns the registry the dispatcher mutates.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Connect records a newly opened connection. It has no room until it joins.
func (d *Dispatcher) Connect(c *Client) {
	d.mu.Lock()
	d.clients[c] = struct{}{}
	total := len(d.clients)
	d.mu.Unlock()

	metrics.ConnectionsActive.Inc()
	d.logger.Info().Str("conn_id", c.ID).Int("total_connections", total).Msg("Client connected.")
}

// Disconnect removes c from its room and announces the departure to the
// members left behind. A client that never joined produces no broadcast.
// Calling Disconnect again for the same client is a no-op.
func (d *Dispatcher) Disconnect(c *Client) {
	d.mu.Lock()
	_, tracked := d.clients[c]
	delete(d.clients, c)
	total := len(d.clients)
	d.mu.Unlock()

	if tracked {
		metrics.ConnectionsActive.Dec()
	}

	departing := c.user
	room := d.registry.Leave(c)

	if room != "" {
		d.announceLeave(room, departing)
	}

	d.logger.Info().
		Str("conn_id", c.ID).
		Str("room_id", room).
		Int("total_connections", total).
		Msg("Client disconnected.")
}

// ConnectionCount returns the number of connected clients.
func (d *Dispatcher) ConnectionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.clients)
}

// Shutdown closes every connected client. Their read pumps then run the
// usual Disconnect path.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	clients := make([]*Client, 0, len(d.clients))
	for c := range d.clients {
		clients = append(clients, c)
	}
	d.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}

	d.logger.Info().Int("closed", len(clients)).Msg("Dispatcher shutdown complete.")
}

// HandleFrame processes one raw inbound frame from c.
// join frames are never rate limited.
func (d *Dispatcher) HandleFrame(c *Client, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		d.drop(c, metrics.DropMalformed, "")
		return
	}

	if frame.Type == TypeJoin {
		metrics.FramesReceived.WithLabelValues(string(TypeJoin)).Inc()
		d.handleJoin(c, frame)
		return
	}

	room := d.registry.RoomOf(c)
	if room == "" {
		d.drop(c, metrics.DropUnjoined, frame.Type)
		return
	}

	if !c.allowFrame() {
		d.drop(c, metrics.DropRateLimited, frame.Type)
		return
	}

	switch frame.Type {
	case TypeChat:
		d.Broadcast(room, ChatEvent{
			Type:    TypeChat,
			Message: frame.Message,
			At:      d.timestamp(),
		})

	case TypeTyping:
		d.Broadcast(room, TypingEvent{
			Type:     TypeTyping,
			UserID:   frame.UserID,
			UserName: frame.UserName,
			IsTyping: truthy(frame.IsTyping),
			At:       d.timestamp(),
		})

	case TypeReaction:
		d.Broadcast(room, ReactionEvent{
			Type:    TypeReaction,
			Payload: frame.Payload,
			At:      d.timestamp(),
		})

	default:
		d.drop(c, metrics.DropUnknownType, frame.Type)
		return
	}

	metrics.FramesReceived.WithLabelValues(string(frame.Type)).Inc()
}

// handleJoin moves c into the requested room. A client already in a room
// leaves it first, and the old room hears about it before the new one does.
// The leave is announced while c is in no room, so a re-join of the same
// room never echoes c's own departure back to it.
func (d *Dispatcher) handleJoin(c *Client, frame inboundFrame) {
	if previous := d.registry.Leave(c); previous != "" {
		d.announceLeave(previous, c.user)
	}

	room := d.registry.Join(c, roomIDFromFrame(frame.RoomID))
	c.user = user.Resolve(frame.User)

	d.unicast(c, JoinedEvent{Type: TypeJoined, RoomID: room})
	d.announceJoin(room, c.user)

	d.logger.Info().
		Str("conn_id", c.ID).
		Str("room_id", room).
		Str("user_id", user.Peek(c.user).ID).
		Msg("Client joined.")
}

// unicast queues event to c alone.
func (d *Dispatcher) unicast(c *Client, event any) {
	payload, err := encodeEvent(event)
	if err != nil {
		d.logger.Error().Err(err).Str("conn_id", c.ID).Msg("Error marshaling unicast event.")
		return
	}

	if !c.Send(payload) {
		d.logger.Debug().Str("conn_id", c.ID).Msg("Unicast dropped, client not sendable.")
	}
}

func (d *Dispatcher) drop(c *Client, reason string, eventType EventType) {
	metrics.FramesDropped.WithLabelValues(reason).Inc()

	d.logger.Debug().
		Str("conn_id", c.ID).
		Str("reason", reason).
		Str("event_type", string(eventType)).
		Msg("Frame dropped.")
}

// timestamp is the server-assigned event time in epoch milliseconds.
func (d *Dispatcher) timestamp() int64 {
	return epochMillis(d.now())
}
