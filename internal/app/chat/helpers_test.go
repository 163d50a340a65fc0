package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const fixedMillis int64 = 1700000000123

func fixedClock() time.Time {
	return time.UnixMilli(fixedMillis)
}

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(NewRegistry(), WithClock(fixedClock))
}

func newTestClient() *Client {
	return NewClient(nil, ClientOptions{SendQueueSize: 32})
}

// connect creates a client registered with d.
func connect(d *Dispatcher) *Client {
	c := newTestClient()
	d.Connect(c)
	return c
}

// drain returns every payload currently queued for c.
func drain(c *Client) []string {
	var out []string
	for {
		select {
		case p := <-c.send:
			out = append(out, string(p))
		default:
			return out
		}
	}
}

// next pops exactly one queued payload.
func next(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case p := <-c.send:
		return string(p)
	default:
		require.FailNow(t, "expected a queued payload, found none")
		return ""
	}
}

func send(d *Dispatcher, c *Client, frame string) {
	d.HandleFrame(c, []byte(frame))
}
