package tui

import (
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/internal/core/push"
	"github.com/colonyops/storefront/internal/core/search"
	"github.com/colonyops/storefront/internal/core/sinks"
)

// Messages posted by core components from arbitrary goroutines. The Update
// loop applies them in post order after a drain.
type (
	badgeMsg struct {
		count int
	}
	resultsMsg struct {
		query   search.Query
		results []search.Result
	}
	clearResultsMsg struct{}
	pulseMsg        struct {
		target   string
		duration time.Duration
	}
	queueEventMsg struct {
		event notify.Event
	}
	pushStateMsg struct {
		state push.ChannelState
	}
	searchEventMsg struct {
		event search.Event
	}
)

// drainInboxMsg tells the Update loop the inbox has items.
type drainInboxMsg struct{}

// Inbox buffers messages from core components and emits coalesced drain
// signals. It implements every UI sink so the core never touches model state
// directly.
type Inbox struct {
	mu     sync.Mutex
	items  []tea.Msg
	signal chan struct{}
}

// NewInbox constructs an inbox for async sink delivery.
func NewInbox() *Inbox {
	return &Inbox{
		items:  make([]tea.Msg, 0),
		signal: make(chan struct{}, 1),
	}
}

// Post appends a message and emits a non-blocking drain signal.
func (b *Inbox) Post(msg tea.Msg) {
	b.mu.Lock()
	b.items = append(b.items, msg)
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// Drain returns all buffered messages and clears the buffer.
func (b *Inbox) Drain() []tea.Msg {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return nil
	}

	out := make([]tea.Msg, len(b.items))
	copy(out, b.items)
	b.items = b.items[:0]
	return out
}

// WaitForSignal blocks until there are messages ready to drain.
func (b *Inbox) WaitForSignal() tea.Cmd {
	return func() tea.Msg {
		<-b.signal
		return drainInboxMsg{}
	}
}

// Registry returns a sink registry backed by the inbox.
func (b *Inbox) Registry() sinks.Registry {
	return sinks.Registry{Badge: b, Results: b, Pulse: b}
}

func (b *Inbox) SetCount(n int) {
	b.Post(badgeMsg{count: n})
}

func (b *Inbox) Show(q search.Query, results []search.Result) {
	b.Post(resultsMsg{query: q, results: results})
}

func (b *Inbox) Clear() {
	b.Post(clearResultsMsg{})
}

func (b *Inbox) Pulse(target string, d time.Duration) error {
	b.Post(pulseMsg{target: target, duration: d})
	return nil
}

// Present forwards queue events. Subscribe it with Queue.Subscribe.
func (b *Inbox) Present(ev notify.Event) {
	b.Post(queueEventMsg{event: ev})
}

// PushState forwards push channel transitions.
func (b *Inbox) PushState(s push.ChannelState) {
	b.Post(pushStateMsg{state: s})
}

// SearchEvent forwards search lifecycle events for the status line.
func (b *Inbox) SearchEvent(ev search.Event) {
	b.Post(searchEventMsg{event: ev})
}
