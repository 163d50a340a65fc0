package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var (
	userA = `{"id":"a","name":"Ada","glyph":"🦊"}`
	userB = `{"id":"b","name":"Bo","glyph":"🐢"}`
)

func presence(event, user string) string {
	return fmt.Sprintf(`{"type":"presence","event":%q,"user":%s,"at":%d}`, event, user, fixedMillis)
}

func TestDispatcher_JoinAcknowledgesAndAnnounces(t *testing.T) {
	d := newTestDispatcher()
	a := connect(d)

	send(d, a, `{"type":"join","roomId":"Lobby","user":`+userA+`}`)

	assert.JSONEq(t, `{"type":"joined","roomId":"lobby"}`, next(t, a))
	assert.JSONEq(t, presence("join", userA), next(t, a))
	assert.Empty(t, drain(a))
	assert.Equal(t, "lobby", d.Registry().RoomOf(a))
}

func TestDispatcher_SecondJoinerIsAnnouncedToRoom(t *testing.T) {
	d := newTestDispatcher()
	a, b := connect(d), connect(d)

	send(d, a, `{"type":"join","roomId":"Lobby","user":`+userA+`}`)
	drain(a)

	send(d, b, `{"type":"join","roomId":"lobby","user":`+userB+`}`)

	assertPayloads(t, a, presence("join", userB))
	assert.JSONEq(t, `{"type":"joined","roomId":"lobby"}`, next(t, b))
}

func TestDispatcher_JoinDefaults(t *testing.T) {
	anon := `{"id":"anon","name":"Anon","glyph":"🙂"}`

	tests := []struct {
		name  string
		frame string
		room  string
	}{
		{name: "no fields", frame: `{"type":"join"}`, room: "general"},
		{name: "empty room", frame: `{"type":"join","roomId":"","user":null}`, room: "general"},
		{name: "non-string room", frame: `{"type":"join","roomId":7,"user":false}`, room: "general"},
		{name: "null room", frame: `{"type":"join","roomId":null,"user":""}`, room: "general"},
		{name: "upper case room", frame: `{"type":"join","roomId":"ROOM-1"}`, room: "room-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher()
			c := connect(d)

			send(d, c, tt.frame)

			assert.JSONEq(t, fmt.Sprintf(`{"type":"joined","roomId":%q}`, tt.room), next(t, c))
			assert.JSONEq(t, presence("join", anon), next(t, c))
		})
	}
}

func TestDispatcher_ChatReachesOnlyRoomMembers(t *testing.T) {
	d := newTestDispatcher()
	a, b, c := connect(d), connect(d), connect(d)

	send(d, a, `{"type":"join","roomId":"lobby","user":`+userA+`}`)
	send(d, b, `{"type":"join","roomId":"lobby","user":`+userB+`}`)
	send(d, c, `{"type":"join","roomId":"elsewhere"}`)
	drain(a)
	drain(b)
	drain(c)

	send(d, a, `{"type":"chat","message":"hi"}`)

	want := fmt.Sprintf(`{"type":"chat","message":"hi","at":%d}`, fixedMillis)
	assert.JSONEq(t, want, next(t, b))
	assert.JSONEq(t, want, next(t, a), "sender is a room member too")
	assert.Empty(t, drain(c))
}

func TestDispatcher_RelayedPayloadsAreVerbatim(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{
			name:  "structured chat message",
			frame: `{"type":"chat","message":{"text":"hi","mentions":["b"]}}`,
			want:  `{"type":"chat","message":{"text":"hi","mentions":["b"]},"at":%d}`,
		},
		{
			name:  "chat without message",
			frame: `{"type":"chat"}`,
			want:  `{"type":"chat","at":%d}`,
		},
		{
			name:  "chat with null message",
			frame: `{"type":"chat","message":null}`,
			want:  `{"type":"chat","message":null,"at":%d}`,
		},
		{
			name:  "typing true",
			frame: `{"type":"typing","userId":"a","userName":"Ada","isTyping":true}`,
			want:  `{"type":"typing","userId":"a","userName":"Ada","isTyping":true,"at":%d}`,
		},
		{
			name:  "typing coerces truthy values",
			frame: `{"type":"typing","userId":"a","userName":"Ada","isTyping":"yes"}`,
			want:  `{"type":"typing","userId":"a","userName":"Ada","isTyping":true,"at":%d}`,
		},
		{
			name:  "typing coerces falsy values",
			frame: `{"type":"typing","userId":1,"isTyping":0}`,
			want:  `{"type":"typing","userId":1,"isTyping":false,"at":%d}`,
		},
		{
			name:  "reaction payload",
			frame: `{"type":"reaction","payload":{"emoji":"👍","target":"m1"}}`,
			want:  `{"type":"reaction","payload":{"emoji":"👍","target":"m1"},"at":%d}`,
		},
		{
			name:  "ignores client timestamp",
			frame: `{"type":"reaction","payload":1,"at":5}`,
			want:  `{"type":"reaction","payload":1,"at":%d}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher()
			a, b := connect(d), connect(d)
			send(d, a, `{"type":"join","roomId":"lobby"}`)
			send(d, b, `{"type":"join","roomId":"lobby"}`)
			drain(a)
			drain(b)

			send(d, a, tt.frame)

			assert.JSONEq(t, fmt.Sprintf(tt.want, fixedMillis), next(t, b))
		})
	}
}

func TestDispatcher_RelaysMarkupCharactersUnescaped(t *testing.T) {
	d := newTestDispatcher()
	a, b := connect(d), connect(d)
	send(d, a, `{"type":"join","roomId":"<lobby>","user":{"name":"Tom & Jerry"}}`)
	drain(a)
	send(d, b, `{"type":"join","roomId":"<lobby>"}`)
	assert.Equal(t, `{"type":"joined","roomId":"<lobby>"}`, next(t, b))
	drain(a)
	drain(b)

	send(d, a, `{"type":"chat","message":"<b>hi</b> & bye"}`)

	assert.Equal(t, fmt.Sprintf(`{"type":"chat","message":"<b>hi</b> & bye","at":%d}`, fixedMillis), next(t, b))

	d.Disconnect(a)
	assert.Equal(t, fmt.Sprintf(`{"type":"presence","event":"leave","user":{"name":"Tom & Jerry"},"at":%d}`, fixedMillis), next(t, b))
}

func TestDispatcher_DropsWithoutReply(t *testing.T) {
	tests := []struct {
		name   string
		joined bool
		frame  string
	}{
		{name: "chat before join", frame: `{"type":"chat","message":"hi"}`},
		{name: "typing before join", frame: `{"type":"typing","isTyping":true}`},
		{name: "reaction before join", frame: `{"type":"reaction","payload":1}`},
		{name: "invalid syntax", frame: `{"type":"chat",`},
		{name: "not an object", frame: `[1,2,3]`},
		{name: "non-string type", joined: true, frame: `{"type":5}`},
		{name: "unknown type after join", joined: true, frame: `{"type":"dance"}`},
		{name: "missing type after join", joined: true, frame: `{"message":"hi"}`},
		{name: "type is case sensitive", joined: true, frame: `{"type":"CHAT","message":"hi"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher()
			a, b := connect(d), connect(d)
			send(d, b, `{"type":"join","roomId":"lobby"}`)
			if tt.joined {
				send(d, a, `{"type":"join","roomId":"lobby"}`)
			}
			drain(a)
			drain(b)

			send(d, a, tt.frame)

			assert.Empty(t, drain(a))
			assert.Empty(t, drain(b))
		})
	}
}

func TestDispatcher_MalformedFrameDoesNotBreakConnection(t *testing.T) {
	d := newTestDispatcher()
	a := connect(d)

	send(d, a, `not json at all`)
	assert.Empty(t, drain(a))

	send(d, a, `{"type":"join","roomId":"lobby"}`)
	assert.JSONEq(t, `{"type":"joined","roomId":"lobby"}`, next(t, a))
}

func TestDispatcher_RejoinAnnouncesLeaveThenJoin(t *testing.T) {
	d := newTestDispatcher()
	a, b, c := connect(d), connect(d), connect(d)

	send(d, a, `{"type":"join","roomId":"lobby","user":`+userA+`}`)
	send(d, b, `{"type":"join","roomId":"lobby","user":`+userB+`}`)
	send(d, c, `{"type":"join","roomId":"kitchen"}`)
	drain(a)
	drain(b)
	drain(c)

	send(d, a, `{"type":"join","roomId":"Kitchen","user":`+userA+`}`)

	assertPayloads(t, b, presence("leave", userA))
	assertPayloads(t, c, presence("join", userA))
	assert.Equal(t, "kitchen", d.Registry().RoomOf(a))
	assert.ElementsMatch(t, []*Client{b}, d.Registry().MembersOf("lobby"))
}

func TestDispatcher_RejoinSameRoomCyclesPresence(t *testing.T) {
	d := newTestDispatcher()
	a, b := connect(d), connect(d)

	send(d, a, `{"type":"join","roomId":"lobby","user":`+userA+`}`)
	send(d, b, `{"type":"join","roomId":"lobby","user":`+userB+`}`)
	drain(a)
	drain(b)

	renamed := `{"id":"a","name":"Ada L.","glyph":"🦊"}`
	send(d, a, `{"type":"join","roomId":"lobby","user":`+renamed+`}`)

	assertPayloads(t, b,
		presence("leave", userA),
		presence("join", renamed),
	)
}

func TestDispatcher_RejoinLeaveAnnouncementSkipsEmptyRoom(t *testing.T) {
	d := newTestDispatcher()
	a := connect(d)

	send(d, a, `{"type":"join","roomId":"lobby"}`)
	drain(a)

	send(d, a, `{"type":"join","roomId":"kitchen"}`)

	assert.JSONEq(t, `{"type":"joined","roomId":"kitchen"}`, next(t, a))
	assert.JSONEq(t, presence("join", `{"id":"anon","name":"Anon","glyph":"🙂"}`), next(t, a))
	assert.Empty(t, drain(a))
	assert.False(t, d.Registry().HasRoom("lobby"))
}

func TestDispatcher_DisconnectAnnouncesLeave(t *testing.T) {
	d := newTestDispatcher()
	a, b := connect(d), connect(d)

	send(d, a, `{"type":"join","roomId":"lobby","user":`+userA+`}`)
	send(d, b, `{"type":"join","roomId":"lobby","user":`+userB+`}`)
	drain(a)
	drain(b)

	a.Close()
	d.Disconnect(a)

	assertPayloads(t, b, presence("leave", userA))
	assert.Empty(t, d.Registry().RoomOf(a))
	assert.Equal(t, 1, d.ConnectionCount())
}

func TestDispatcher_DisconnectSoleOccupantRemovesRoom(t *testing.T) {
	d := newTestDispatcher()
	a, other := connect(d), connect(d)

	send(d, a, `{"type":"join","roomId":"lobby"}`)
	send(d, other, `{"type":"join","roomId":"kitchen"}`)
	drain(a)
	drain(other)

	d.Disconnect(a)

	assert.False(t, d.Registry().HasRoom("lobby"))
	assert.Empty(t, d.Registry().MembersOf("lobby"))
	assert.Empty(t, drain(a))
	assert.Empty(t, drain(other))
}

func TestDispatcher_DisconnectBeforeJoinIsSilent(t *testing.T) {
	d := newTestDispatcher()
	a, b := connect(d), connect(d)
	send(d, b, `{"type":"join","roomId":"general"}`)
	drain(b)

	d.Disconnect(a)
	d.Disconnect(a)

	assert.Empty(t, drain(b))
	assert.Equal(t, 1, d.ConnectionCount())
}

func TestDispatcher_FramesOverRateAreDropped(t *testing.T) {
	d := newTestDispatcher()
	c := NewClient(nil, ClientOptions{SendQueueSize: 8, FrameRate: rate.Limit(0.001), FrameBurst: 1})
	d.Connect(c)

	send(d, c, `{"type":"join","roomId":"lobby"}`)
	require.Len(t, drain(c), 2)

	send(d, c, `{"type":"chat","message":"first"}`)
	assert.JSONEq(t, fmt.Sprintf(`{"type":"chat","message":"first","at":%d}`, fixedMillis), next(t, c))

	send(d, c, `{"type":"chat","message":"spam"}`)
	assert.Empty(t, drain(c))
}

func TestDispatcher_JoinIsNeverRateLimited(t *testing.T) {
	d := newTestDispatcher()
	c := NewClient(nil, ClientOptions{SendQueueSize: 8, FrameRate: rate.Limit(0.001), FrameBurst: 1})
	d.Connect(c)

	send(d, c, `{"type":"join","roomId":"lobby"}`)
	send(d, c, `{"type":"chat","message":"spends the only token"}`)
	drain(c)

	send(d, c, `{"type":"join","roomId":"kitchen"}`)

	assert.Equal(t, "kitchen", d.Registry().RoomOf(c))
	assert.JSONEq(t, `{"type":"joined","roomId":"kitchen"}`, next(t, c))
}

func TestDispatcher_DefaultOptionsRelayEveryFrameOfABurst(t *testing.T) {
	d := newTestDispatcher()
	a := NewClient(nil, DefaultClientOptions())
	b := NewClient(nil, DefaultClientOptions())
	d.Connect(a)
	d.Connect(b)

	send(d, a, `{"type":"join","roomId":"lobby"}`)
	send(d, b, `{"type":"join","roomId":"lobby"}`)
	drain(a)
	drain(b)

	const burst = 60
	for i := range burst {
		send(d, a, fmt.Sprintf(`{"type":"chat","message":%d}`, i))
	}
	assert.Len(t, drain(b), burst)

	send(d, a, `{"type":"join","roomId":"kitchen"}`)
	assert.Equal(t, "kitchen", d.Registry().RoomOf(a))
}

func TestDispatcher_ShutdownClosesClients(t *testing.T) {
	d := newTestDispatcher()
	a, b := connect(d), connect(d)

	d.Shutdown()

	assert.False(t, a.IsSendable())
	assert.False(t, b.IsSendable())

	select {
	case <-a.Done():
	default:
		t.Fatal("expected Done to be closed after shutdown")
	}
}

// assertPayloads drains c and compares its queue with want, in order.
func assertPayloads(t *testing.T, c *Client, want ...string) {
	t.Helper()
	got := drain(c)
	require.Len(t, got, len(want), "queued payloads: %v", got)
	for i := range want {
		assert.JSONEq(t, want[i], got[i], "payload %d", i)
	}
}
