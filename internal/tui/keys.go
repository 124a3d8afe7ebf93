package tui

import (
	"strings"

	"charm.land/bubbles/v2/key"
)

// KeyMap holds the storefront bindings. Bindings that are active while a
// text input has focus use ctrl modifiers so typing is never swallowed.
type KeyMap struct {
	Quit          key.Binding
	NextFocus     key.Binding
	Up            key.Binding
	Down          key.Binding
	AddToCart     key.Binding
	QtyUp         key.Binding
	QtyDown       key.Binding
	Subscribe     key.Binding
	FocusSearch   key.Binding
	DismissToast  key.Binding
	DismissToasts key.Binding
	History       key.Binding
	Close         key.Binding
	ClearHistory  key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:          key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		NextFocus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
		Up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		AddToCart:     key.NewBinding(key.WithKeys("enter", "a"), key.WithHelp("enter", "add to cart")),
		QtyUp:         key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "quantity")),
		QtyDown:       key.NewBinding(key.WithKeys("-")),
		Subscribe:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "subscribe")),
		FocusSearch:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		DismissToast:  key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "dismiss")),
		DismissToasts: key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "dismiss all")),
		History:       key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "notifications")),
		Close:         key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("esc", "close")),
		ClearHistory:  key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "clear all")),
	}
}

// helpLine renders "key desc" pairs for bindings that carry help text.
func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
