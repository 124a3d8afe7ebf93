package mutation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var (
	ErrMissingProduct = errors.New("product id is required")
	ErrBadQuantity    = errors.New("quantity must be at least 1")
	ErrBadEmail       = errors.New("a valid email address is required")
)

// Action names the mutating request an outcome belongs to.
type Action string

const (
	ActionCart       Action = "cart"
	ActionNewsletter Action = "newsletter"
)

// CartIntent asks the backend to add Quantity units of ProductID to the cart.
type CartIntent struct {
	ProductID string
	Quantity  int
}

func (i CartIntent) Validate() error {
	if strings.TrimSpace(i.ProductID) == "" {
		return ErrMissingProduct
	}
	if i.Quantity < 1 {
		return fmt.Errorf("%w, got %d", ErrBadQuantity, i.Quantity)
	}
	return nil
}

// NewsletterIntent subscribes Email to the newsletter.
type NewsletterIntent struct {
	Email string
}

func (i NewsletterIntent) Validate() error {
	addr, err := mail.ParseAddress(strings.TrimSpace(i.Email))
	if err != nil || addr.Name != "" {
		return ErrBadEmail
	}
	return nil
}

// OutcomeKind is the terminal result of an intent.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	if k == OutcomeSuccess {
		return "success"
	}
	return "failure"
}

// Outcome is produced exactly once per intent. CartCount is set on cart
// success; Message carries the user-facing failure text.
type Outcome struct {
	Action    Action
	Kind      OutcomeKind
	CartCount int
	Message   string
	Err       error
}

func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}
