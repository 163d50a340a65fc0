/*
Package chat contains the relay core: connection handles, the room registry,
the event dispatcher, presence notifications and room fan-out.

This file defines the Client struct, the handle for one WebSocket connection.
It owns the outbound queue and the read/write pumps. Room membership is not
stored here authoritatively; the Registry owns it and keeps the back-reference
in sync under its own lock.
*/
package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"roomrelay/internal/pkg/logx"
	"roomrelay/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10
)

// ClientOptions tunes a single connection.
type ClientOptions struct {
	// SendQueueSize is the capacity of the outbound queue.
	SendQueueSize int

	// MaxFrameBytes is the inbound read limit. Zero disables the limit.
	MaxFrameBytes int64

	// FrameRate and FrameBurst configure the inbound token bucket for
	// relayed frames. A zero FrameRate disables inbound rate limiting.
	FrameRate  rate.Limit
	FrameBurst int
}

// DefaultClientOptions mirrors the configuration defaults.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		SendQueueSize: 256,
		MaxFrameBytes: 8192,
		FrameRate:     0,
		FrameBurst:    40,
	}
}

// Client is one live client session.
type Client struct {
	// ID is a server-generated identifier used in logs.
	ID string

	// underlying WebSocket connection; nil in tests that drive the dispatcher directly.
	conn *websocket.Conn

	// room is the back-reference into the Registry. Guarded by Registry.mu.
	room string

	// user is the last descriptor received in a join. Only touched by the
	// connection's own frame sequence.
	user json.RawMessage

	// a buffered channel used to queue payloads waiting to be written.
	send chan []byte

	// closed is the liveness flag; done is closed together with it.
	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	maxFrameBytes int64
	limiter       *rate.Limiter

	logger zerolog.Logger
}

// NewClient wraps wsConn. wsConn may be nil when the client is only used
// through Send and the dispatcher.
func NewClient(wsConn *websocket.Conn, opts ClientOptions) *Client {
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = DefaultClientOptions().SendQueueSize
	}

	id := randx.ConnID()

	c := &Client{
		ID:            id,
		conn:          wsConn,
		send:          make(chan []byte, opts.SendQueueSize),
		done:          make(chan struct{}),
		maxFrameBytes: opts.MaxFrameBytes,
		logger:        logx.Logger().With().Str("conn_id", id).Logger(),
	}

	if opts.FrameRate > 0 {
		c.limiter = rate.NewLimiter(opts.FrameRate, opts.FrameBurst)
	}

	return c
}

// Send queues payload without blocking. It returns false when the client is
// closed or its queue is full; the payload is then dropped.
func (c *Client) Send(payload []byte) bool {
	if c.closed.Load() {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// IsSendable reports whether the client still accepts payloads.
func (c *Client) IsSendable() bool {
	return !c.closed.Load()
}

// Close marks the client dead and stops its write pump. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// allowFrame consumes one token from the inbound bucket.
func (c *Client) allowFrame() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// ReadPump reads frames until the connection fails and hands each one to d
// in arrival order. It always ends with exactly one d.Disconnect call.
func (c *Client) ReadPump(d *Dispatcher) {
	defer func() {
		d.Disconnect(c)
		c.Close()

		if err := c.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}
	}()

	if c.maxFrameBytes > 0 {
		c.conn.SetReadLimit(c.maxFrameBytes)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Unexpected close while reading")
			}
			return
		}

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		d.HandleFrame(c, frame)
	}
}

// WritePump drains the outbound queue to the socket and keeps the connection
// alive with pings. It returns when the client is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Close()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case payload := <-c.send:
			if !c.write(websocket.TextMessage, payload) {
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}

		case <-c.done:
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// write sends one frame with a deadline. It returns false on failure.
func (c *Client) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing message")
		return false
	}

	return true
}
