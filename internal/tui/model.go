// Package tui implements the Bubble Tea TUI for storefront.
package tui

import (
	"context"
	"fmt"
	"slices"
	"time"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/colonyops/storefront/internal/core/logging"
	"github.com/colonyops/storefront/internal/core/mutation"
	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/internal/core/push"
	"github.com/colonyops/storefront/internal/core/search"
	"github.com/colonyops/storefront/internal/core/session"
	"github.com/colonyops/storefront/internal/core/styles"
)

const (
	defaultHistoryLimit = 50
	maxQuantity         = 99
)

// Searcher receives raw search input. search.Controller implements it.
type Searcher interface {
	Submit(text string)
}

// Mutator performs cart and newsletter mutations. Both calls block until the
// backend answers, so the model runs them inside a tea.Cmd.
type Mutator interface {
	DispatchCart(ctx context.Context, intent mutation.CartIntent) mutation.Outcome
	DispatchNewsletter(ctx context.Context, intent mutation.NewsletterIntent) mutation.Outcome
}

// Notifications is the part of notify.Queue the TUI drives directly.
type Notifications interface {
	History
	DismissNewest() bool
	DismissAll()
}

// Options wires the model to the core.
type Options struct {
	Context       context.Context
	Search        Searcher
	Mutations     Mutator
	Notifications Notifications
	Inbox         *Inbox
	Session       session.Context
	BaseURL       string
	HistoryLimit  int
	Build         BuildInfo
}

type outcomeMsg struct {
	outcome mutation.Outcome
}

type pulseDoneMsg struct {
	seq int
}

// Model is the storefront page. All UI state lives here and is only touched
// from Update; core components reach it through the Inbox.
type Model struct {
	ctx           context.Context
	searcher      Searcher
	mutations     Mutator
	notifications Notifications
	inbox         *Inbox
	sess          session.Context
	baseURL       string
	historyLimit  int
	build         BuildInfo
	keys          KeyMap
	log           zerolog.Logger

	searchInput textinput.Model
	emailInput  textinput.Model
	focus       Focus

	query     search.Query
	hasQuery  bool
	results   []search.Result
	selected  int
	quantity  int
	searching bool

	cartCount   int
	pulseTarget string
	pulseSeq    int
	inFlight    int
	status      string

	push      push.ChannelState
	toasts    []notify.Record
	toastView *ToastView
	history   *HistoryModal
	confirm   *Modal

	width    int
	height   int
	quitting bool
}

// New creates the storefront model.
func New(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Inbox == nil {
		opts.Inbox = NewInbox()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}

	searchInput := textinput.New()
	searchInput.Placeholder = "Search products..."
	searchInput.Prompt = styles.IconSearch + " "
	searchInput.CharLimit = 120
	searchInput.SetWidth(48)
	inputStyles := textinput.DefaultStyles(true)
	inputStyles.Cursor.Color = styles.ColorPrimary
	searchInput.SetStyles(inputStyles)
	searchInput.Focus()

	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.com"
	emailInput.Prompt = styles.IconMail + " "
	emailInput.CharLimit = 254
	emailInput.SetWidth(48)
	emailInput.SetStyles(inputStyles)

	return Model{
		ctx:           opts.Context,
		searcher:      opts.Search,
		mutations:     opts.Mutations,
		notifications: opts.Notifications,
		inbox:         opts.Inbox,
		sess:          opts.Session,
		baseURL:       opts.BaseURL,
		historyLimit:  opts.HistoryLimit,
		build:         opts.Build,
		keys:          DefaultKeyMap(),
		log:           logging.Component("tui"),
		searchInput:   searchInput,
		emailInput:    emailInput,
		quantity:      1,
		toastView:     NewToastView(),
	}
}

// Init starts listening on the inbox.
func (m Model) Init() tea.Cmd {
	return m.inbox.WaitForSignal()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case drainInboxMsg:
		cmds := []tea.Cmd{m.inbox.WaitForSignal()}
		for _, item := range m.inbox.Drain() {
			cmds = append(cmds, m.apply(item))
		}
		return m, tea.Batch(cmds...)

	case outcomeMsg:
		m.inFlight = max(m.inFlight-1, 0)
		m.status = outcomeStatus(msg.outcome)
		if msg.outcome.Action == mutation.ActionNewsletter && msg.outcome.Succeeded() {
			m.emailInput.SetValue("")
		}
		return m, nil

	case pulseDoneMsg:
		if msg.seq == m.pulseSeq {
			m.pulseTarget = ""
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	return m.updateInput(msg)
}

// apply folds one inbox message into the model.
func (m *Model) apply(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case badgeMsg:
		m.cartCount = msg.count
	case resultsMsg:
		m.query = msg.query
		m.hasQuery = true
		m.results = msg.results
		m.selected = min(m.selected, max(len(m.results)-1, 0))
		m.searching = false
	case clearResultsMsg:
		m.hasQuery = false
		m.results = nil
		m.selected = 0
		m.searching = false
		if m.focus == FocusResults {
			m.setFocus(FocusSearch)
		}
	case pulseMsg:
		m.pulseTarget = msg.target
		m.pulseSeq++
		seq := m.pulseSeq
		return tea.Tick(msg.duration, func(time.Time) tea.Msg {
			return pulseDoneMsg{seq: seq}
		})
	case queueEventMsg:
		m.applyQueueEvent(msg.event)
	case pushStateMsg:
		m.push = msg.state
	case searchEventMsg:
		switch msg.event.Kind {
		case search.EventIssued:
			m.searching = true
		case search.EventFailed:
			m.searching = false
			m.status = "search failed"
		case search.EventCleared, search.EventRendered:
			m.searching = false
		}
	}
	return nil
}

// applyQueueEvent mirrors the queue's visible set. Events arrive in the order
// the queue changed, so appending presentations preserves enqueue order.
func (m *Model) applyQueueEvent(ev notify.Event) {
	switch ev.Kind {
	case notify.EventPresented:
		m.toasts = append(m.toasts, ev.Record)
	case notify.EventDismissed:
		m.toasts = slices.DeleteFunc(m.toasts, func(r notify.Record) bool {
			return r.ID == ev.Record.ID
		})
	}
	m.toastView.SetRecords(m.toasts)
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	if m.confirm != nil {
		return m.handleConfirmKey(msg)
	}
	if m.history != nil {
		return m.handleHistoryKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.History):
		m.history = NewHistoryModal(m.notifications, m.historyLimit, m.viewWidth(), m.viewHeight())
		return m, nil
	case key.Matches(msg, m.keys.DismissToast):
		if m.notifications != nil {
			m.notifications.DismissNewest()
		}
		return m, nil
	case key.Matches(msg, m.keys.DismissToasts):
		if m.notifications != nil {
			m.notifications.DismissAll()
		}
		return m, nil
	case key.Matches(msg, m.keys.NextFocus):
		next := m.focus.next()
		if next == FocusResults && len(m.results) == 0 {
			next = next.next()
		}
		return m, m.setFocus(next)
	}

	switch m.focus {
	case FocusResults:
		return m.handleResultsKey(msg)
	case FocusNewsletter:
		if key.Matches(msg, m.keys.Subscribe) {
			return m, m.subscribe()
		}
	case FocusSearch:
		if msg.String() == "enter" && len(m.results) > 0 {
			return m, m.setFocus(FocusResults)
		}
	}

	return m.updateInput(msg)
}

func (m Model) handleResultsKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.selected = max(m.selected-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.selected = min(m.selected+1, max(len(m.results)-1, 0))
	case key.Matches(msg, m.keys.QtyUp):
		m.quantity = min(m.quantity+1, maxQuantity)
	case key.Matches(msg, m.keys.QtyDown):
		m.quantity = max(m.quantity-1, 1)
	case key.Matches(msg, m.keys.FocusSearch):
		return m, m.setFocus(FocusSearch)
	case key.Matches(msg, m.keys.AddToCart):
		return m, m.addToCart()
	}
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close):
		m.history = nil
	case key.Matches(msg, m.keys.Up):
		m.history.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.history.ScrollDown()
	case key.Matches(msg, m.keys.ClearHistory):
		confirm := NewModal("Clear notifications", "Delete all saved notifications?")
		m.confirm = &confirm
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "right", "h", "l", "tab":
		m.confirm.ToggleSelection()
	case "esc":
		m.confirm = nil
	case "enter":
		if m.confirm.ConfirmSelected() && m.history != nil {
			if err := m.history.Clear(); err != nil {
				m.log.Error().Err(err).Msg("failed to clear notification history")
				m.status = "failed to clear notifications"
			}
		}
		m.confirm = nil
	}
	return m, nil
}

// updateInput forwards msg to the focused text input and submits search
// input changes to the controller.
func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case FocusSearch:
		before := m.searchInput.Value()
		m.searchInput, cmd = m.searchInput.Update(msg)
		if after := m.searchInput.Value(); after != before && m.searcher != nil {
			m.searcher.Submit(after)
		}
	case FocusNewsletter:
		m.emailInput, cmd = m.emailInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(f Focus) tea.Cmd {
	m.focus = f
	m.searchInput.Blur()
	m.emailInput.Blur()

	switch f {
	case FocusSearch:
		return m.searchInput.Focus()
	case FocusNewsletter:
		return m.emailInput.Focus()
	}
	return nil
}

func (m *Model) addToCart() tea.Cmd {
	if m.mutations == nil || len(m.results) == 0 {
		return nil
	}

	intent := mutation.CartIntent{
		ProductID: m.results[m.selected].ProductID(),
		Quantity:  m.quantity,
	}
	mutations := m.mutations
	m.inFlight++
	return m.dispatch(func(ctx context.Context) mutation.Outcome {
		return mutations.DispatchCart(ctx, intent)
	})
}

func (m *Model) subscribe() tea.Cmd {
	if m.mutations == nil {
		return nil
	}

	intent := mutation.NewsletterIntent{Email: m.emailInput.Value()}
	mutations := m.mutations
	m.inFlight++
	return m.dispatch(func(ctx context.Context) mutation.Outcome {
		return mutations.DispatchNewsletter(ctx, intent)
	})
}

func (m *Model) dispatch(fn func(context.Context) mutation.Outcome) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return outcomeMsg{outcome: fn(ctx)}
	}
}

func outcomeStatus(o mutation.Outcome) string {
	if o.Succeeded() {
		if o.Action == mutation.ActionCart {
			return fmt.Sprintf("cart now holds %d item(s)", o.CartCount)
		}
		return "subscribed"
	}
	return o.Message
}

func (m Model) viewWidth() int {
	if m.width == 0 {
		return 80
	}
	return m.width
}

func (m Model) viewHeight() int {
	if m.height == 0 {
		return 24
	}
	return m.height
}
