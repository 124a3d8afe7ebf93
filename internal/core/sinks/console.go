package sinks

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/internal/core/search"
)

// Console writes sink output as plain lines. It backs the non-interactive
// commands.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) SetCount(n int) {
	c.printf("cart: %d item(s)\n", n)
}

func (c *Console) Show(q search.Query, results []search.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(results) == 0 {
		_, _ = fmt.Fprintf(c.w, "no results for %q\n", q.Text)
		return
	}
	for _, r := range results {
		id := r.ID
		if id == "" {
			id = "-"
		}
		_, _ = fmt.Fprintf(c.w, "%-8s %-40s %10s  %s\n", id, r.Name, r.Price, r.URL)
	}
}

func (c *Console) Clear() {}

func (c *Console) Pulse(target string, _ time.Duration) error {
	c.printf("* %s\n", target)
	return nil
}

// Present prints queue presentations. Dismissals are ignored.
func (c *Console) Present(ev notify.Event) {
	if ev.Kind != notify.EventPresented {
		return
	}
	c.printf("[%s] %s: %s\n", ev.Record.Level, ev.Record.Title, ev.Record.Message)
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, format, args...)
}
