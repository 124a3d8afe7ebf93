// Package push consumes the per-user notification channel and forwards each
// valid message to a sink.
package push

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/colonyops/storefront/internal/core/logging"
	"github.com/colonyops/storefront/internal/core/metrics"
	"github.com/colonyops/storefront/internal/core/session"
)

const closeGracePeriod = time.Second

// State is the lifecycle position of the channel.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ChannelState is the observable state. Attempt counts reconnects since the
// channel last stayed open for the policy's StableAfter.
type ChannelState struct {
	State   State
	Attempt int
}

type Option func(*Consumer)

func WithReconnect(p ReconnectPolicy) Option {
	return func(c *Consumer) { c.policy = p }
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.dialer.HandshakeTimeout = d
		}
	}
}

// WithJar sends the cookies of jar with the handshake so the server can
// authenticate the session.
func WithJar(jar http.CookieJar) Option {
	return func(c *Consumer) { c.dialer.Jar = jar }
}

func WithClock(cl clock.Clock) Option {
	return func(c *Consumer) { c.clock = cl }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Consumer) { c.log = l }
}

// Consumer owns one push channel for the session's user. Messages are
// forwarded synchronously from a single read loop, so the sink sees them in
// arrival order.
type Consumer struct {
	sess     session.Context
	endpoint string
	sink     Sink
	dialer   *websocket.Dialer
	policy   ReconnectPolicy
	clock    clock.Clock
	log      zerolog.Logger

	mu          sync.Mutex
	state       ChannelState
	conn        *websocket.Conn
	subscribers []func(ChannelState)
	started     bool
	closed      bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewConsumer prepares a consumer for endpoint (see Endpoint). Nothing is
// dialed until Start.
func NewConsumer(sess session.Context, endpoint string, sink Sink, opts ...Option) *Consumer {
	c := &Consumer{
		sess:     sess,
		endpoint: endpoint,
		sink:     sink,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		policy: DefaultReconnectPolicy(),
		clock:  clock.New(),
		log:    logging.Component("push"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn for every state transition. Subscribers run on the
// consumer's own goroutine and must not block on it: calling Close from fn
// deadlocks, so use go c.Close() or cancel the Start context instead.
func (c *Consumer) Subscribe(fn func(ChannelState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// State returns the current channel state.
func (c *Consumer) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens the channel in the background. It returns false, without
// dialing, for anonymous sessions and when the consumer was already started
// or closed.
func (c *Consumer) Start(ctx context.Context) bool {
	if c.sess.Anonymous() {
		c.log.Debug().Msg("anonymous session, push channel disabled")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.closed {
		return false
	}
	c.started = true

	ctx, c.cancel = context.WithCancel(logging.WithUserID(ctx, c.sess.UserID))
	c.done = make(chan struct{})
	go c.run(ctx)
	return true
}

// Close sends a close frame, closes the socket and waits for the read loop
// to exit. The terminal state is StateClosed. Calling Close more than once
// is a no-op.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, done, conn := c.cancel, c.done, c.conn
	c.mu.Unlock()

	var err error
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = fmt.Errorf("close push channel: %w", cerr)
		}
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	c.setState(ChannelState{State: StateClosed})
	return err
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)
	defer c.setState(ChannelState{State: StateClosed})

	log := c.log.With().Str("endpoint", c.endpoint).Logger()
	backoff := c.policy.backoff()
	attempt := 0

	for {
		c.setState(ChannelState{State: StateConnecting, Attempt: attempt})

		conn, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
		if err == nil {
			if !c.attach(conn) {
				return
			}

			c.setState(ChannelState{State: StateOpen})
			log.Info().Ctx(ctx).Msg("push channel open")
			metrics.PushOpen.Set(1)
			openedAt := c.clock.Now()

			err = c.readLoop(ctx, conn)

			metrics.PushOpen.Set(0)
			c.detach(conn)

			// A server that accepts and drops straight away keeps backing off.
			if c.clock.Now().Sub(openedAt) >= c.policy.stableAfter() {
				attempt = 0
				backoff = c.policy.backoff()
			}
		}

		if ctx.Err() != nil {
			return
		}

		if backoff == nil {
			log.Warn().Ctx(ctx).Err(err).Msg("push channel closed unexpectedly")
			return
		}

		delay, stop := backoff.Next()
		if stop {
			log.Warn().Ctx(ctx).Err(err).Int("attempts", attempt).Msg("push channel closed, giving up")
			return
		}

		attempt++
		metrics.PushReconnects.Inc()
		log.Warn().Ctx(ctx).Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("push channel closed unexpectedly, reconnecting")
		c.setState(ChannelState{State: StateReconnecting, Attempt: attempt})

		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(delay):
		}
	}
}

func (c *Consumer) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if kind != websocket.TextMessage {
			c.log.Debug().Int("frame_type", kind).Msg("dropping non-text push frame")
			metrics.PushMessages.WithLabelValues("dropped").Inc()
			continue
		}

		msg, err := ParseMessage(data)
		if err != nil {
			c.log.Warn().Ctx(ctx).Err(err).Msg("dropping push message")
			metrics.PushMessages.WithLabelValues("dropped").Inc()
			continue
		}

		c.sink.Deliver(msg)
		metrics.PushMessages.WithLabelValues("forwarded").Inc()
	}
}

// attach records conn as the live connection. It returns false, after
// closing conn, when Close won the race with the dial.
func (c *Consumer) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = conn.Close()
		return false
	}
	c.conn = conn
	return true
}

func (c *Consumer) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *Consumer) setState(s ChannelState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	subs := slices.Clone(c.subscribers)
	c.mu.Unlock()

	c.log.Debug().Stringer("state", s.State).Int("attempt", s.Attempt).Msg("push state")
	for _, fn := range subs {
		fn(s)
	}
}
