package notify

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/storefront/internal/core/logging"
	"github.com/colonyops/storefront/internal/core/metrics"
)

const (
	DefaultMaxVisible = 5
	DefaultTTL        = 5 * time.Second
	DefaultMinDisplay = 1 * time.Second
)

// Reason describes why a record left the queue.
type Reason string

const (
	ReasonUser      Reason = "user"
	ReasonTimeout   Reason = "timeout"
	ReasonEvicted   Reason = "evicted"
	ReasonRetracted Reason = "retracted"
)

// EventKind distinguishes presentation from dismissal events.
type EventKind int

const (
	EventPresented EventKind = iota
	EventDismissed
)

func (k EventKind) String() string {
	if k == EventPresented {
		return "presented"
	}
	return "dismissed"
}

// Event is delivered to subscribers whenever the visible set changes.
// Reason is empty for EventPresented.
type Event struct {
	Kind   EventKind
	Record Record
	Reason Reason
}

// Subscriber is a callback invoked for every queue event.
type Subscriber func(Event)

// Option configures a Queue.
type Option func(*Queue)

// WithClock replaces the wall clock used for timestamps and lifetimes.
func WithClock(c clock.Clock) Option {
	return func(q *Queue) { q.clock = c }
}

// WithStore persists every enqueued record to s.
func WithStore(s Store) Option {
	return func(q *Queue) { q.store = s }
}

// WithMaxVisible bounds the number of visible records. Values < 1 are ignored.
func WithMaxVisible(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxVisible = n
		}
	}
}

// WithTTL sets how long a record stays visible before it times out.
// Zero disables the timeout.
func WithTTL(d time.Duration) Option {
	return func(q *Queue) { q.ttl = d }
}

// WithMinDisplay sets how long a record must be shown before a programmatic
// Retract is honored.
func WithMinDisplay(d time.Duration) Option {
	return func(q *Queue) { q.minDisplay = d }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(q *Queue) { q.log = l }
}

type entry struct {
	record  Record
	shownAt time.Time
	expire  *clock.Timer
	retract *clock.Timer
}

func (e *entry) stop() {
	if e.expire != nil {
		e.expire.Stop()
	}
	if e.retract != nil {
		e.retract.Stop()
	}
}

// Queue owns the ordered set of visible notifications. Records are presented
// in enqueue order, each with its own lifetime, and removed exactly once.
//
// When the queue is full a new record waits until the oldest visible record
// has been shown for the minimum display duration, then replaces it. Waiting
// records are presented in enqueue order.
//
// Events reach subscribers in the order the queue changed. A subscriber may
// call back into the queue; events raised from inside a subscriber are
// delivered after the current one.
type Queue struct {
	clock      clock.Clock
	store      Store
	log        zerolog.Logger
	maxVisible int
	ttl        time.Duration
	minDisplay time.Duration

	mu          sync.Mutex
	entries     []*entry
	waiting     []Record
	promote     *clock.Timer
	subscribers []Subscriber
	pending     []Event
	draining    bool
	closed      bool
}

// NewQueue constructs a queue with the default bounds unless overridden.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		clock:      clock.New(),
		log:        logging.Component("notify"),
		maxVisible: DefaultMaxVisible,
		ttl:        DefaultTTL,
		minDisplay: DefaultMinDisplay,
	}
	for _, opt := range opts {
		opt(q)
	}
	// A timeout is a programmatic dismissal too.
	if q.ttl > 0 && q.ttl < q.minDisplay {
		q.ttl = q.minDisplay
	}
	return q
}

// Subscribe registers a callback invoked for every presentation and dismissal.
func (q *Queue) Subscribe(fn Subscriber) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.subscribers = append(q.subscribers, fn)
}

// Enqueue creates a record and makes it visible. When the queue is full the
// record waits for the oldest one to reach its minimum display duration and
// then evicts it.
func (q *Queue) Enqueue(title, message string, level Level) Record {
	if !level.Valid() {
		level = LevelInfo
	}

	rec := Record{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Level:     level,
		CreatedAt: q.clock.Now(),
	}

	if q.store != nil {
		if err := q.store.Save(context.Background(), rec); err != nil {
			q.log.Error().Err(err).Str("title", title).Msg("failed to persist notification")
		}
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return rec
	}

	q.waiting = append(q.waiting, rec)
	q.publishLocked(q.admitLocked(nil)...)
	return rec
}

// admitLocked moves waiting records into the visible set while there is a
// free slot or the oldest visible record may be evicted. Otherwise it
// schedules another attempt for when the oldest one may go.
func (q *Queue) admitLocked(events []Event) []Event {
	now := q.clock.Now()
	for len(q.waiting) > 0 {
		if len(q.entries) >= q.maxVisible {
			oldest := q.entries[0]
			if wait := q.minDisplay - now.Sub(oldest.shownAt); wait > 0 {
				q.schedulePromoteLocked(wait)
				break
			}
			q.entries = q.entries[1:]
			oldest.stop()
			events = append(events, Event{Kind: EventDismissed, Record: oldest.record, Reason: ReasonEvicted})
		}

		rec := q.waiting[0]
		q.waiting = q.waiting[1:]
		q.presentLocked(rec, now)
		events = append(events, Event{Kind: EventPresented, Record: rec})
	}
	return events
}

func (q *Queue) presentLocked(rec Record, now time.Time) {
	e := &entry{record: rec, shownAt: now}
	q.entries = append(q.entries, e)

	if q.ttl > 0 {
		id := rec.ID
		e.expire = q.clock.AfterFunc(q.ttl, func() {
			q.remove(id, ReasonTimeout)
		})
	}
}

// schedulePromoteLocked arms a single retry of admitLocked. The oldest
// visible record only gets younger as records leave, so an armed timer never
// fires too late.
func (q *Queue) schedulePromoteLocked(wait time.Duration) {
	if q.promote != nil {
		return
	}
	q.promote = q.clock.AfterFunc(wait, func() {
		q.mu.Lock()
		q.promote = nil
		if q.closed {
			q.mu.Unlock()
			return
		}
		q.publishLocked(q.admitLocked(nil)...)
	})
}

// Dismiss removes a record on behalf of the user. A record still waiting
// for a slot is dropped without ever being presented. It returns false when
// the record is gone; dismissing twice is a no-op.
func (q *Queue) Dismiss(id string) bool {
	return q.remove(id, ReasonUser)
}

// Retract requests programmatic removal of a record. If the record has not
// yet been shown for the minimum display duration, removal is deferred until
// it has. A waiting record is dropped. Returns false when the record is gone.
func (q *Queue) Retract(id string) bool {
	q.mu.Lock()
	if q.dropWaitingLocked(id) {
		q.mu.Unlock()
		return true
	}
	idx := q.indexLocked(id)
	if idx < 0 {
		q.mu.Unlock()
		return false
	}

	e := q.entries[idx]
	shown := q.clock.Now().Sub(e.shownAt)
	if shown >= q.minDisplay {
		q.removeAtLocked(idx, ReasonRetracted)
		return true
	}

	if e.retract == nil {
		e.retract = q.clock.AfterFunc(q.minDisplay-shown, func() {
			q.remove(id, ReasonRetracted)
		})
	}
	q.mu.Unlock()
	return true
}

// DismissNewest removes the most recently enqueued visible record.
func (q *Queue) DismissNewest() bool {
	q.mu.Lock()
	if len(q.entries) == 0 {
		q.mu.Unlock()
		return false
	}
	q.removeAtLocked(len(q.entries)-1, ReasonUser)
	return true
}

// DismissAll removes every visible record on behalf of the user and drops
// the ones still waiting.
func (q *Queue) DismissAll() {
	q.mu.Lock()
	q.waiting = nil
	q.stopPromoteLocked()
	events := make([]Event, 0, len(q.entries))
	for _, e := range q.entries {
		e.stop()
		events = append(events, Event{Kind: EventDismissed, Record: e.record, Reason: ReasonUser})
	}
	q.entries = nil
	q.publishLocked(events...)
}

// Visible returns the visible records in presentation order.
func (q *Queue) Visible() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Record, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.record
	}
	return out
}

// Len returns the number of visible records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Waiting returns the number of records queued behind a full visible set.
func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// History returns persisted records, newest first. Returns nil if no store
// is configured.
func (q *Queue) History(ctx context.Context, limit int) ([]Record, error) {
	if q.store == nil {
		return nil, nil
	}
	return q.store.List(ctx, limit)
}

// ClearHistory deletes all persisted records.
func (q *Queue) ClearHistory(ctx context.Context) error {
	if q.store == nil {
		return nil
	}
	return q.store.Clear(ctx)
}

// Close stops every pending lifetime timer. Records enqueued afterwards are
// never presented.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.stopPromoteLocked()
	for _, e := range q.entries {
		e.stop()
	}
	q.entries = nil
	q.waiting = nil
	metrics.NotificationsVisible.Set(0)
}

func (q *Queue) stopPromoteLocked() {
	if q.promote != nil {
		q.promote.Stop()
		q.promote = nil
	}
}

func (q *Queue) dropWaitingLocked(id string) bool {
	idx := slices.IndexFunc(q.waiting, func(r Record) bool { return r.ID == id })
	if idx < 0 {
		return false
	}
	q.waiting = slices.Delete(q.waiting, idx, idx+1)
	return true
}

func (q *Queue) remove(id string, reason Reason) bool {
	q.mu.Lock()
	if reason == ReasonUser && q.dropWaitingLocked(id) {
		q.mu.Unlock()
		return true
	}
	idx := q.indexLocked(id)
	if idx < 0 {
		q.mu.Unlock()
		return false
	}
	q.removeAtLocked(idx, reason)
	return true
}

// removeAtLocked must be called with q.mu held; it releases q.mu. The freed
// slot goes to the oldest waiting record.
func (q *Queue) removeAtLocked(idx int, reason Reason) {
	e := q.entries[idx]
	q.entries = slices.Delete(q.entries, idx, idx+1)
	e.stop()
	events := []Event{{Kind: EventDismissed, Record: e.record, Reason: reason}}
	q.publishLocked(q.admitLocked(events)...)
}

func (q *Queue) indexLocked(id string) int {
	return slices.IndexFunc(q.entries, func(e *entry) bool {
		return e.record.ID == id
	})
}

// publishLocked must be called with q.mu held; it releases q.mu. Only one
// goroutine delivers at a time so subscribers observe events in the order
// they were produced.
func (q *Queue) publishLocked(events ...Event) {
	for _, ev := range events {
		if ev.Kind == EventDismissed {
			metrics.NotificationsDismissed.WithLabelValues(string(ev.Reason)).Inc()
		}
	}
	metrics.NotificationsVisible.Set(float64(len(q.entries)))

	q.pending = append(q.pending, events...)
	if q.draining {
		q.mu.Unlock()
		return
	}

	q.draining = true
	for len(q.pending) > 0 {
		batch := q.pending
		q.pending = nil
		subs := slices.Clone(q.subscribers)
		q.mu.Unlock()

		for _, ev := range batch {
			for _, fn := range subs {
				fn(ev)
			}
		}

		q.mu.Lock()
	}
	q.draining = false
	q.mu.Unlock()
}
