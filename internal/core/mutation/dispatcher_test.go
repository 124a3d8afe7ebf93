package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/storefront/internal/backend"
	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/internal/core/session"
	"github.com/colonyops/storefront/internal/core/sinks"
)

type fakeBackend struct {
	mu        sync.Mutex
	cartCount int
	cartErr   error
	subErr    error
	panicWith any
	tokens    []string
	cartCalls int
	emails    []string
}

func (b *fakeBackend) AddToCart(_ context.Context, token, _ string, _ int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.panicWith != nil {
		panic(b.panicWith)
	}
	b.tokens = append(b.tokens, token)
	b.cartCalls++
	return b.cartCount, b.cartErr
}

func (b *fakeBackend) Subscribe(_ context.Context, token, email string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = append(b.tokens, token)
	b.emails = append(b.emails, email)
	return b.subErr
}

type fakeNotifier struct {
	mu      sync.Mutex
	records []notify.Record
}

func (n *fakeNotifier) Enqueue(title, message string, level notify.Level) notify.Record {
	n.mu.Lock()
	defer n.mu.Unlock()
	r := notify.Record{Title: title, Message: message, Level: level}
	n.records = append(n.records, r)
	return r
}

type pulse struct {
	target string
	d      time.Duration
}

type fixture struct {
	backend  *fakeBackend
	notifier *fakeNotifier
	badge    []int
	pulses   []pulse
	outcomes []Outcome
	disp     *Dispatcher
}

func newFixture(pulseErr error, opts ...Option) *fixture {
	f := &fixture{backend: &fakeBackend{}, notifier: &fakeNotifier{}}
	registry := sinks.Registry{
		Badge: sinks.BadgeFunc(func(n int) { f.badge = append(f.badge, n) }),
		Pulse: sinks.PulseFunc(func(target string, d time.Duration) error {
			f.pulses = append(f.pulses, pulse{target: target, d: d})
			return pulseErr
		}),
	}
	f.disp = NewDispatcher(f.backend, session.StaticToken("csrf-1"), f.notifier, registry, opts...)
	f.disp.Subscribe(func(o Outcome) { f.outcomes = append(f.outcomes, o) })
	return f
}

func TestDispatchCart_success(t *testing.T) {
	f := newFixture(nil)
	f.backend.cartCount = 5

	out := f.disp.DispatchCart(context.Background(), CartIntent{ProductID: "42", Quantity: 1})

	assert.True(t, out.Succeeded())
	assert.Equal(t, 5, out.CartCount)
	assert.Equal(t, []int{5}, f.badge)
	require.Len(t, f.notifier.records, 1)
	assert.Equal(t, notify.Record{Title: "Success", Message: "Product added to cart!", Level: notify.LevelInfo}, f.notifier.records[0])
	assert.Equal(t, []pulse{{target: "42", d: time.Second}}, f.pulses)
	assert.Equal(t, []string{"csrf-1"}, f.backend.tokens)
	assert.Len(t, f.outcomes, 1)
}

func TestDispatchCart_pulse_error_is_not_surfaced(t *testing.T) {
	f := newFixture(errors.New("control detached"), WithPulseDuration(250*time.Millisecond))
	f.backend.cartCount = 1

	out := f.disp.DispatchCart(context.Background(), CartIntent{ProductID: "7", Quantity: 1})

	assert.True(t, out.Succeeded())
	assert.Len(t, f.notifier.records, 1)
	assert.Equal(t, 250*time.Millisecond, f.pulses[0].d)
}

func TestDispatchCart_failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "server message",
			err:     &backend.APIError{Status: 400, Message: "Out of stock"},
			wantMsg: "Out of stock",
		},
		{
			name:    "empty server message",
			err:     &backend.APIError{Status: 500},
			wantMsg: MsgCartFailed,
		},
		{
			name:    "transport",
			err:     fmt.Errorf("%w: dial tcp: refused", backend.ErrTransport),
			wantMsg: MsgCartFailed,
		},
		{
			name:    "malformed",
			err:     fmt.Errorf("%w: unexpected EOF", backend.ErrMalformed),
			wantMsg: MsgCartFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)
			f.backend.cartErr = tt.err

			out := f.disp.DispatchCart(context.Background(), CartIntent{ProductID: "1", Quantity: 2})

			assert.Equal(t, OutcomeFailure, out.Kind)
			assert.Equal(t, tt.wantMsg, out.Message)
			assert.ErrorIs(t, out.Err, tt.err)
			require.Len(t, f.notifier.records, 1)
			assert.Equal(t, notify.LevelDanger, f.notifier.records[0].Level)
			assert.Equal(t, "Error", f.notifier.records[0].Title)
			assert.Equal(t, tt.wantMsg, f.notifier.records[0].Message)
			assert.Empty(t, f.badge, "badge untouched on failure")
			assert.Empty(t, f.pulses)
		})
	}
}

func TestDispatchCart_invalid_intent_sends_nothing(t *testing.T) {
	tests := []struct {
		name   string
		intent CartIntent
		want   error
	}{
		{"missing product", CartIntent{Quantity: 1}, ErrMissingProduct},
		{"zero quantity", CartIntent{ProductID: "1"}, ErrBadQuantity},
		{"negative quantity", CartIntent{ProductID: "1", Quantity: -3}, ErrBadQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)

			out := f.disp.DispatchCart(context.Background(), tt.intent)

			assert.ErrorIs(t, out.Err, tt.want)
			assert.Zero(t, f.backend.cartCalls)
			assert.Len(t, f.notifier.records, 1)
		})
	}
}

func TestDispatchCart_backend_panic_becomes_failure(t *testing.T) {
	f := newFixture(nil)
	f.backend.panicWith = "boom"

	out := f.disp.DispatchCart(context.Background(), CartIntent{ProductID: "1", Quantity: 1})

	assert.Equal(t, OutcomeFailure, out.Kind)
	assert.Equal(t, MsgCartFailed, out.Message)
	assert.Len(t, f.notifier.records, 1)
}

func TestDispatchCart_concurrent_intents_are_not_deduplicated(t *testing.T) {
	f := newFixture(nil)
	f.backend.cartCount = 3

	f.disp.DispatchCart(context.Background(), CartIntent{ProductID: "1", Quantity: 1})
	f.disp.DispatchCart(context.Background(), CartIntent{ProductID: "1", Quantity: 1})

	assert.Equal(t, 2, f.backend.cartCalls)
	assert.Len(t, f.notifier.records, 2)
	assert.Len(t, f.outcomes, 2)
}

func TestDispatchNewsletter(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(nil)

		out := f.disp.DispatchNewsletter(context.Background(), NewsletterIntent{Email: " a@example.com "})

		assert.True(t, out.Succeeded())
		assert.Equal(t, []string{"a@example.com"}, f.backend.emails)
		require.Len(t, f.notifier.records, 1)
		assert.Equal(t, notify.LevelSuccess, f.notifier.records[0].Level)
		assert.Equal(t, MsgNewsletterOK, f.notifier.records[0].Message)
		assert.Empty(t, f.badge)
	})

	t.Run("server error", func(t *testing.T) {
		f := newFixture(nil)
		f.backend.subErr = &backend.APIError{Status: 409, Message: "Already subscribed"}

		out := f.disp.DispatchNewsletter(context.Background(), NewsletterIntent{Email: "a@example.com"})

		assert.Equal(t, "Already subscribed", out.Message)
		assert.Equal(t, notify.LevelDanger, f.notifier.records[0].Level)
	})

	t.Run("transport", func(t *testing.T) {
		f := newFixture(nil)
		f.backend.subErr = backend.ErrTransport

		out := f.disp.DispatchNewsletter(context.Background(), NewsletterIntent{Email: "a@example.com"})

		assert.Equal(t, MsgNewsletterFailed, out.Message)
	})

	t.Run("invalid email", func(t *testing.T) {
		f := newFixture(nil)

		out := f.disp.DispatchNewsletter(context.Background(), NewsletterIntent{Email: "not-an-email"})

		assert.ErrorIs(t, out.Err, ErrBadEmail)
		assert.Empty(t, f.backend.emails)
	})
}

func TestDispatcher_with_queue(t *testing.T) {
	q := notify.NewQueue(notify.WithClock(clock.NewMock()))
	var presented []notify.Record
	q.Subscribe(func(ev notify.Event) {
		if ev.Kind == notify.EventPresented {
			presented = append(presented, ev.Record)
		}
	})

	be := &fakeBackend{cartCount: 2}
	disp := NewDispatcher(be, nil, q, sinks.Registry{})

	disp.DispatchCart(context.Background(), CartIntent{ProductID: "1", Quantity: 1})
	be.cartErr = backend.ErrTransport
	disp.DispatchCart(context.Background(), CartIntent{ProductID: "1", Quantity: 1})

	require.Len(t, presented, 2)
	assert.Equal(t, MsgCartAdded, presented[0].Message)
	assert.Equal(t, MsgCartFailed, presented[1].Message)
	assert.Equal(t, []string{"", ""}, be.tokens)
}
