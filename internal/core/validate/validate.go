// Package validate provides shared validation functions.
package validate

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
)

// HTTPURL validates an absolute http or https URL with a host.
func HTTPURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// Email validates a bare email address ("user@example.com", no display name).
func Email(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("email is required")
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Name != "" || parsed.Address != addr {
		return fmt.Errorf("%q is not a valid email address", addr)
	}
	return nil
}

// EmailField returns a criterio validator for email addresses.
func EmailField(field, addr string) error {
	return criterio.Run(field, addr, Email)
}

// PositiveDuration rejects zero and negative durations.
func PositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", d)
	}
	return nil
}

// NonNegativeDuration rejects negative durations.
func NonNegativeDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("must not be negative, got %s", d)
	}
	return nil
}

// AtLeast returns a validator rejecting values below lowerBound.
func AtLeast(lowerBound int) func(int) error {
	return func(n int) error {
		if n < lowerBound {
			return fmt.Errorf("must be at least %d, got %d", lowerBound, n)
		}
		return nil
	}
}

// Percent validates a value in [0, 100].
func Percent(n int) error {
	if n < 0 || n > 100 {
		return fmt.Errorf("must be between 0 and 100, got %d", n)
	}
	return nil
}

// URLPath validates an absolute URL path.
func URLPath(p string) error {
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("path must start with /, got %q", p)
	}
	return nil
}
