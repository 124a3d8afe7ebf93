// Package sinks defines the write-only surfaces the coordination core
// renders into. Sinks never read state back, so the same core drives the
// terminal UI and the plain CLI commands.
package sinks

import (
	"time"

	"github.com/colonyops/storefront/internal/core/search"
)

// Badge shows the current cart item count.
type Badge interface {
	SetCount(n int)
}

// Pulse plays a short highlight on a target element, typically a product.
type Pulse interface {
	Pulse(target string, d time.Duration) error
}

// BadgeFunc adapts a function to Badge.
type BadgeFunc func(n int)

func (f BadgeFunc) SetCount(n int) { f(n) }

// PulseFunc adapts a function to Pulse.
type PulseFunc func(target string, d time.Duration) error

func (f PulseFunc) Pulse(target string, d time.Duration) error { return f(target, d) }

// Registry bundles the sinks a frontend provides. Missing sinks are
// replaced by no-ops in WithDefaults.
type Registry struct {
	Badge   Badge
	Results ResultList
	Pulse   Pulse
}

// WithDefaults returns a copy of r where nil sinks are no-ops.
func (r Registry) WithDefaults() Registry {
	if r.Badge == nil {
		r.Badge = Nop{}
	}
	if r.Results == nil {
		r.Results = Nop{}
	}
	if r.Pulse == nil {
		r.Pulse = Nop{}
	}
	return r
}

// Nop discards everything written to it.
type Nop struct{}

func (Nop) SetCount(int)                       {}
func (Nop) Show(search.Query, []search.Result) {}
func (Nop) Clear()                             {}
func (Nop) Pulse(string, time.Duration) error  { return nil }

// ResultList renders search results.
type ResultList = search.Renderer
