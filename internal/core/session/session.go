// Package session defines the per-run session context and the anti-forgery
// token supplier collaborator.
package session

import (
	"strings"
)

// Context identifies the signed-in storefront user for this run. It is
// passed explicitly to the components that need it.
type Context struct {
	UserID string
}

// New returns a session context for userID. Surrounding whitespace is ignored.
func New(userID string) Context {
	return Context{UserID: strings.TrimSpace(userID)}
}

// Anonymous reports whether no user is signed in. Anonymous sessions do not
// receive push notifications.
func (c Context) Anonymous() bool {
	return c.UserID == ""
}

// TokenSupplier provides the anti-forgery token attached to mutating
// requests. An empty string means no token is available; the request is sent
// without one and the server decides.
type TokenSupplier interface {
	Token() string
}

// TokenFunc adapts a function to TokenSupplier.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// StaticToken always supplies the same token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// FirstOf returns a supplier that yields the first non-empty token from
// suppliers, in order. Nil suppliers are skipped.
func FirstOf(suppliers ...TokenSupplier) TokenSupplier {
	return TokenFunc(func() string {
		for _, s := range suppliers {
			if s == nil {
				continue
			}
			if tok := s.Token(); tok != "" {
				return tok
			}
		}
		return ""
	})
}
