package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog"

	"github.com/colonyops/storefront/internal/core/logging"
	"github.com/colonyops/storefront/internal/core/metrics"
)

const (
	DefaultQuietPeriod = 300 * time.Millisecond
	DefaultMinLength   = 2
)

// Searcher performs the network query for a search term.
type Searcher interface {
	Search(ctx context.Context, text string) ([]Result, error)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, text string) ([]Result, error)

func (f SearcherFunc) Search(ctx context.Context, text string) ([]Result, error) {
	return f(ctx, text)
}

// Renderer receives the authoritative results. Implementations must not call
// back into the Controller.
type Renderer interface {
	Show(q Query, results []Result)
	Clear()
}

// EventKind classifies controller events.
type EventKind int

const (
	EventIssued EventKind = iota
	EventRendered
	EventStale
	EventFailed
	EventCleared
)

func (k EventKind) String() string {
	switch k {
	case EventIssued:
		return "issued"
	case EventRendered:
		return "rendered"
	case EventStale:
		return "stale"
	case EventFailed:
		return "failed"
	case EventCleared:
		return "cleared"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event reports what happened to a query. Err is set for EventFailed.
type Event struct {
	Kind    EventKind
	Query   Query
	Results int
	Err     error
}

// Option configures a Controller.
type Option func(*Controller)

func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithQuietPeriod sets how long input must stay unchanged before a query is
// issued. Non-positive values are ignored.
func WithQuietPeriod(d time.Duration) Option {
	return func(ctl *Controller) {
		if d > 0 {
			ctl.quiet = d
		}
	}
}

// WithMinLength sets the minimum trimmed length, in runes, of a searchable
// input. Shorter input clears the results instead.
func WithMinLength(n int) Option {
	return func(ctl *Controller) {
		if n > 0 {
			ctl.minLen = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(ctl *Controller) { ctl.log = l }
}

// Controller turns a stream of keystroke-level input into at most one search
// request per quiet period and renders only the newest request's results.
//
// Every issued request gets a SequenceID one higher than the previous one.
// A completion is rendered only if its SequenceID is still the latest;
// anything older is discarded, whatever order the responses arrive in.
type Controller struct {
	searcher Searcher
	renderer Renderer
	clock    clock.Clock
	quiet    time.Duration
	minLen   int
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	timer       *clock.Timer
	generation  uint64
	latest      uint64
	closed      bool
	subscribers []func(Event)
}

// NewController creates a controller that queries searcher and renders into
// renderer.
func NewController(searcher Searcher, renderer Renderer, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		searcher: searcher,
		renderer: renderer,
		clock:    clock.New(),
		quiet:    DefaultQuietPeriod,
		minLen:   DefaultMinLength,
		log:      logging.Component("search"),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn for every controller event.
func (c *Controller) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Submit records the current input. Input shorter than the minimum length
// cancels any pending request, supersedes requests in flight and clears the
// results immediately. Otherwise the quiet period restarts.
func (c *Controller) Submit(text string) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()

	if utf8.RuneCountInString(text) < c.minLen {
		c.latest++
		c.renderer.Clear()
		subs := slices.Clone(c.subscribers)
		c.mu.Unlock()

		metrics.SearchCleared.Inc()
		emit(subs, Event{Kind: EventCleared})
		return
	}

	gen := c.generation
	c.timer = c.clock.AfterFunc(c.quiet, func() {
		c.fire(gen, text)
	})
	c.mu.Unlock()
}

// Pending reports whether a query is waiting for the quiet period to elapse.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Latest returns the SequenceID of the most recent request, or of the most
// recent clear.
func (c *Controller) Latest() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Close cancels the pending timer and every request in flight, then waits
// for outstanding requests to return. No result is rendered after Close.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// stopTimerLocked bumps the generation so a timer that already fired but
// has not yet taken the lock becomes a no-op.
func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
}

func (c *Controller) fire(gen uint64, text string) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.latest++
	q := Query{Text: text, SequenceID: c.latest}
	c.wg.Add(1)
	subs := slices.Clone(c.subscribers)
	c.mu.Unlock()

	c.log.Debug().Str("query", q.Text).Uint64("seq", q.SequenceID).Msg("issuing search")
	emit(subs, Event{Kind: EventIssued, Query: q})

	go c.run(q)
}

func (c *Controller) run(q Query) {
	defer c.wg.Done()

	ctx := logging.WithRequestID(c.ctx, fmt.Sprintf("search-%d", q.SequenceID))
	results, err := c.search(ctx, q.Text)

	c.mu.Lock()
	subs := slices.Clone(c.subscribers)

	if err != nil {
		stale := c.closed || q.SequenceID != c.latest
		latest := c.latest
		c.mu.Unlock()
		if errors.Is(err, context.Canceled) && c.ctx.Err() != nil {
			c.log.Debug().Uint64("seq", q.SequenceID).Msg("search canceled")
			return
		}
		if stale {
			c.log.Debug().
				Err(err).
				Uint64("seq", q.SequenceID).
				Uint64("latest", latest).
				Msg("discarding stale search failure")
			metrics.SearchRequests.WithLabelValues("stale").Inc()
			emit(subs, Event{Kind: EventStale, Query: q, Err: err})
			return
		}
		c.log.Warn().Err(err).Str("query", q.Text).Uint64("seq", q.SequenceID).Msg("search failed")
		metrics.SearchRequests.WithLabelValues("failed").Inc()
		emit(subs, Event{Kind: EventFailed, Query: q, Err: err})
		return
	}

	if c.closed || q.SequenceID != c.latest {
		latest := c.latest
		c.mu.Unlock()
		c.log.Debug().
			Uint64("seq", q.SequenceID).
			Uint64("latest", latest).
			Msg("discarding stale search results")
		metrics.SearchRequests.WithLabelValues("stale").Inc()
		emit(subs, Event{Kind: EventStale, Query: q, Results: len(results)})
		return
	}

	c.renderer.Show(q, results)
	c.mu.Unlock()

	metrics.SearchRequests.WithLabelValues("rendered").Inc()
	emit(subs, Event{Kind: EventRendered, Query: q, Results: len(results)})
}

func (c *Controller) search(ctx context.Context, text string) (results []Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("search panicked: %v", r)
		}
	}()
	return c.searcher.Search(ctx, text)
}

func emit(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
