package push

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/internal/core/session"
)

type frame struct {
	kind int
	data string
}

// pushServer upgrades every request and runs handle on the connection.
type pushServer struct {
	srv      *httptest.Server
	conns    atomic.Int32
	paths    chan string
	closeErr chan error
}

func newPushServer(t *testing.T, handle func(ps *pushServer, n int32, conn *websocket.Conn)) *pushServer {
	t.Helper()

	ps := &pushServer{paths: make(chan string, 16), closeErr: make(chan error, 16)}
	upgrader := websocket.Upgrader{}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := ps.conns.Add(1)
		ps.paths <- r.URL.Path
		handle(ps, n, conn)
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pushServer) endpoint(t *testing.T, userID string) string {
	t.Helper()
	ep, err := Endpoint(ps.srv.URL, "", userID)
	require.NoError(t, err)
	return ep
}

// sendAll writes frames, then blocks reading until the client goes away and
// reports the close error it observed.
func (ps *pushServer) sendAll(conn *websocket.Conn, frames []frame) {
	for _, f := range frames {
		_ = conn.WriteMessage(f.kind, []byte(f.data))
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			ps.closeErr <- err
			_ = conn.Close()
			return
		}
	}
}

type messageLog struct {
	mu   sync.Mutex
	msgs []Message
}

func (l *messageLog) Deliver(m Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, m)
}

func (l *messageLog) get() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.msgs...)
}

type stateLog struct {
	mu     sync.Mutex
	states []ChannelState
}

func (l *stateLog) add(s ChannelState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) get() []ChannelState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ChannelState(nil), l.states...)
}

func (l *stateLog) seen(s ChannelState) bool {
	for _, got := range l.get() {
		if got == s {
			return true
		}
	}
	return false
}

func fastReconnect(maxAttempts int) ReconnectPolicy {
	return ReconnectPolicy{
		Enabled:     true,
		BaseDelay:   5 * time.Millisecond,
		MaxDelay:    20 * time.Millisecond,
		MaxAttempts: maxAttempts,
	}
}

func TestConsumer_anonymous_session_never_dials(t *testing.T) {
	ps := newPushServer(t, func(*pushServer, int32, *websocket.Conn) {})
	c := NewConsumer(session.Context{}, ps.endpoint(t, ""), &messageLog{})

	assert.False(t, c.Start(context.Background()))
	assert.Equal(t, StateClosed, c.State().State)
	assert.Zero(t, ps.conns.Load())
	assert.NoError(t, c.Close())
}

func TestConsumer_forwards_valid_messages_in_order(t *testing.T) {
	ps := newPushServer(t, func(ps *pushServer, _ int32, conn *websocket.Conn) {
		ps.sendAll(conn, []frame{
			{websocket.TextMessage, `{"title":"A","message":"first","level":"info"}`},
			{websocket.TextMessage, `not json`},
			{websocket.TextMessage, `null`},
			{websocket.TextMessage, `{}`},
			{websocket.TextMessage, `{"title":"B","message":"second"}`},
			{websocket.TextMessage, `{"title":"X","message":"bad level","level":"critical"}`},
			{websocket.BinaryMessage, `{"title":"Y","message":"binary"}`},
			{websocket.TextMessage, `{"title":"C","message":"third","level":"danger"}`},
		})
	})

	sink := &messageLog{}
	c := NewConsumer(session.New("42"), ps.endpoint(t, "42"), sink)
	require.True(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	require.Eventually(t, func() bool { return len(sink.get()) == 3 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []Message{
		{Title: "A", Message: "first", Level: notify.LevelInfo},
		{Title: "B", Message: "second", Level: notify.LevelInfo},
		{Title: "C", Message: "third", Level: notify.LevelDanger},
	}, sink.get())
	assert.Equal(t, "/ws/notifications/42/", <-ps.paths)
	assert.Equal(t, StateOpen, c.State().State)
}

func TestConsumer_Close_sends_close_frame(t *testing.T) {
	ps := newPushServer(t, func(ps *pushServer, _ int32, conn *websocket.Conn) {
		ps.sendAll(conn, nil)
	})

	states := &stateLog{}
	c := NewConsumer(session.New("7"), ps.endpoint(t, "7"), &messageLog{})
	c.Subscribe(states.add)
	require.True(t, c.Start(context.Background()))

	require.Eventually(t, func() bool { return c.State().State == StateOpen }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "second close is a no-op")

	select {
	case err := <-ps.closeErr:
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the close")
	}

	assert.Equal(t, ChannelState{State: StateClosed}, c.State())
	got := states.get()
	assert.Equal(t, ChannelState{State: StateConnecting}, got[0])
	assert.Equal(t, ChannelState{State: StateOpen}, got[1])
	assert.Equal(t, ChannelState{State: StateClosed}, got[len(got)-1])
	assert.Equal(t, int32(1), ps.conns.Load())
	assert.False(t, c.Start(context.Background()), "closed consumer cannot restart")
}

func TestConsumer_reconnects_after_unexpected_close(t *testing.T) {
	ps := newPushServer(t, func(_ *pushServer, n int32, conn *websocket.Conn) {
		msg := fmt.Sprintf(`{"title":"T","message":"conn-%d"}`, n)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
		if n == 1 {
			// Drop the first connection without a close handshake.
			_ = conn.Close()
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	sink := &messageLog{}
	states := &stateLog{}
	c := NewConsumer(session.New("1"), ps.endpoint(t, "1"), sink, WithReconnect(fastReconnect(0)))
	c.Subscribe(states.add)
	require.True(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	require.Eventually(t, func() bool { return len(sink.get()) == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return c.State().State == StateOpen }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "conn-1", sink.get()[0].Message)
	assert.Equal(t, "conn-2", sink.get()[1].Message)
	assert.True(t, states.seen(ChannelState{State: StateReconnecting, Attempt: 1}))
	assert.True(t, states.seen(ChannelState{State: StateConnecting, Attempt: 1}))
	assert.Equal(t, ChannelState{State: StateOpen}, c.State(), "attempts reset once open")
}

func TestConsumer_reconnect_disabled_ends_closed(t *testing.T) {
	ps := newPushServer(t, func(_ *pushServer, _ int32, conn *websocket.Conn) {
		_ = conn.Close()
	})

	states := &stateLog{}
	c := NewConsumer(session.New("1"), ps.endpoint(t, "1"), &messageLog{}, WithReconnect(ReconnectPolicy{}))
	c.Subscribe(states.add)
	require.True(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	require.Eventually(t, func() bool {
		s := states.get()
		return len(s) >= 3 && s[len(s)-1].State == StateClosed
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(1), ps.conns.Load())
	assert.False(t, states.seen(ChannelState{State: StateReconnecting, Attempt: 1}))
}

func TestConsumer_gives_up_after_max_attempts(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		dials.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	ep, err := Endpoint(srv.URL, "", "5")
	require.NoError(t, err)

	states := &stateLog{}
	c := NewConsumer(session.New("5"), ep, &messageLog{}, WithReconnect(fastReconnect(2)))
	c.Subscribe(states.add)
	require.True(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	require.Eventually(t, func() bool {
		s := states.get()
		return len(s) > 1 && s[len(s)-1].State == StateClosed
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(3), dials.Load())
	assert.True(t, states.seen(ChannelState{State: StateReconnecting, Attempt: 2}))
}

func TestConsumer_instant_drop_keeps_backing_off(t *testing.T) {
	ps := newPushServer(t, func(_ *pushServer, _ int32, conn *websocket.Conn) {
		_ = conn.Close()
	})

	policy := fastReconnect(2)
	policy.StableAfter = time.Minute

	states := &stateLog{}
	c := NewConsumer(session.New("1"), ps.endpoint(t, "1"), &messageLog{}, WithReconnect(policy))
	c.Subscribe(states.add)
	require.True(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	require.Eventually(t, func() bool {
		s := states.get()
		return len(s) > 1 && s[len(s)-1].State == StateClosed
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(3), ps.conns.Load())
	assert.True(t, states.seen(ChannelState{State: StateOpen}))
	assert.True(t, states.seen(ChannelState{State: StateReconnecting, Attempt: 2}))
}

func TestConsumer_subscriber_can_close_asynchronously(t *testing.T) {
	ps := newPushServer(t, func(ps *pushServer, _ int32, conn *websocket.Conn) {
		ps.sendAll(conn, nil)
	})

	var c *Consumer
	c = NewConsumer(session.New("1"), ps.endpoint(t, "1"), &messageLog{})
	c.Subscribe(func(s ChannelState) {
		if s.State == StateOpen {
			go func() { _ = c.Close() }()
		}
	})
	require.True(t, c.Start(context.Background()))

	require.Eventually(t, func() bool { return c.State().State == StateClosed }, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, c.Close())
	assert.Equal(t, int32(1), ps.conns.Load())
}

func TestConsumer_context_cancel_stops_loop(t *testing.T) {
	ps := newPushServer(t, func(ps *pushServer, _ int32, conn *websocket.Conn) {
		ps.sendAll(conn, nil)
	})

	c := NewConsumer(session.New("3"), ps.endpoint(t, "3"), &messageLog{})
	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, c.Start(ctx))
	require.Eventually(t, func() bool { return c.State().State == StateOpen }, 2*time.Second, 5*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool { return c.State().State == StateClosed }, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, c.Close())
	assert.Equal(t, int32(1), ps.conns.Load())
}

func TestConsumer_Close_before_Start(t *testing.T) {
	c := NewConsumer(session.New("1"), "ws://127.0.0.1:1/ws/", &messageLog{})
	require.NoError(t, c.Close())
	assert.False(t, c.Start(context.Background()))
	assert.Equal(t, StateClosed, c.State().State)
}
