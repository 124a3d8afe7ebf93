// Package mutation sends cart and newsletter mutations to the backend and
// turns each into exactly one outcome and one notification.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/storefront/internal/core/logging"
	"github.com/colonyops/storefront/internal/core/metrics"
	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/internal/core/session"
	"github.com/colonyops/storefront/internal/core/sinks"
)

const (
	DefaultPulseDuration = time.Second

	TitleSuccess = "Success"
	TitleError   = "Error"

	MsgCartAdded        = "Product added to cart!"
	MsgCartFailed       = "Could not add product to cart"
	MsgNewsletterOK     = "Successfully subscribed to newsletter!"
	MsgNewsletterFailed = "Could not subscribe to newsletter"
)

// Backend performs the mutating requests.
type Backend interface {
	AddToCart(ctx context.Context, token, productID string, quantity int) (int, error)
	Subscribe(ctx context.Context, token, email string) error
}

// Notifier accepts user-facing notifications.
type Notifier interface {
	Enqueue(title, message string, level notify.Level) notify.Record
}

type Option func(*Dispatcher)

// WithPulseDuration sets how long the success highlight plays.
func WithPulseDuration(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.pulse = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(disp *Dispatcher) { disp.log = l }
}

// Dispatcher sends mutations and applies their outcome to the sinks and the
// notification queue. Concurrent identical intents are not deduplicated;
// each gets its own request and outcome.
type Dispatcher struct {
	backend Backend
	tokens  session.TokenSupplier
	queue   Notifier
	sinks   sinks.Registry
	pulse   time.Duration
	log     zerolog.Logger

	mu          sync.Mutex
	subscribers []func(Outcome)
}

func NewDispatcher(backend Backend, tokens session.TokenSupplier, queue Notifier, registry sinks.Registry, opts ...Option) *Dispatcher {
	if tokens == nil {
		tokens = session.StaticToken("")
	}
	d := &Dispatcher{
		backend: backend,
		tokens:  tokens,
		queue:   queue,
		sinks:   registry.WithDefaults(),
		pulse:   DefaultPulseDuration,
		log:     logging.Component("mutation"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe registers fn for every outcome.
func (d *Dispatcher) Subscribe(fn func(Outcome)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, fn)
}

// DispatchCart adds a product to the cart. It blocks until the backend
// answers and always returns exactly one outcome.
func (d *Dispatcher) DispatchCart(ctx context.Context, intent CartIntent) Outcome {
	ctx = logging.WithRequestID(ctx, uuid.NewString())

	if err := intent.Validate(); err != nil {
		return d.finish(ctx, Outcome{
			Action:  ActionCart,
			Kind:    OutcomeFailure,
			Message: err.Error(),
			Err:     err,
		})
	}

	var count int
	err := guard(func() error {
		var err error
		count, err = d.backend.AddToCart(ctx, d.tokens.Token(), intent.ProductID, intent.Quantity)
		return err
	})
	if err != nil {
		return d.finish(ctx, Outcome{
			Action:  ActionCart,
			Kind:    OutcomeFailure,
			Message: failureMessage(err, MsgCartFailed),
			Err:     err,
		})
	}

	d.sinks.Badge.SetCount(count)
	out := d.finish(ctx, Outcome{Action: ActionCart, Kind: OutcomeSuccess, CartCount: count})

	if err := d.sinks.Pulse.Pulse(intent.ProductID, d.pulse); err != nil {
		d.log.Debug().Ctx(ctx).Err(err).Str("product_id", intent.ProductID).Msg("pulse failed")
	}
	return out
}

// DispatchNewsletter subscribes an email address to the newsletter.
func (d *Dispatcher) DispatchNewsletter(ctx context.Context, intent NewsletterIntent) Outcome {
	ctx = logging.WithRequestID(ctx, uuid.NewString())

	if err := intent.Validate(); err != nil {
		return d.finish(ctx, Outcome{
			Action:  ActionNewsletter,
			Kind:    OutcomeFailure,
			Message: err.Error(),
			Err:     err,
		})
	}

	err := guard(func() error {
		return d.backend.Subscribe(ctx, d.tokens.Token(), strings.TrimSpace(intent.Email))
	})
	if err != nil {
		return d.finish(ctx, Outcome{
			Action:  ActionNewsletter,
			Kind:    OutcomeFailure,
			Message: failureMessage(err, MsgNewsletterFailed),
			Err:     err,
		})
	}

	return d.finish(ctx, Outcome{Action: ActionNewsletter, Kind: OutcomeSuccess})
}

// finish enqueues the single notification for out, records it and notifies
// subscribers.
func (d *Dispatcher) finish(ctx context.Context, out Outcome) Outcome {
	switch {
	case out.Kind == OutcomeFailure:
		d.log.Warn().Ctx(ctx).Err(out.Err).Str("action", string(out.Action)).Msg("mutation failed")
		d.queue.Enqueue(TitleError, out.Message, notify.LevelDanger)
	case out.Action == ActionCart:
		d.log.Info().Ctx(ctx).Int("cart_count", out.CartCount).Msg("product added to cart")
		d.queue.Enqueue(TitleSuccess, MsgCartAdded, notify.LevelInfo)
	default:
		d.log.Info().Ctx(ctx).Msg("subscribed to newsletter")
		d.queue.Enqueue(TitleSuccess, MsgNewsletterOK, notify.LevelSuccess)
	}

	metrics.Mutations.WithLabelValues(string(out.Action), out.Kind.String()).Inc()

	d.mu.Lock()
	subs := slices.Clone(d.subscribers)
	d.mu.Unlock()
	for _, fn := range subs {
		fn(out)
	}
	return out
}

type serverMessager interface {
	ServerMessage() string
}

// failureMessage prefers the server's own error text and falls back when the
// failure carried none.
func failureMessage(err error, fallback string) string {
	var m serverMessager
	if errors.As(err, &m) {
		if msg := strings.TrimSpace(m.ServerMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panicked: %v", r)
		}
	}()
	return fn()
}
