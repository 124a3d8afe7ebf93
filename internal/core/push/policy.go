package push

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultPathTemplate     = "/ws/notifications/{user_id}/"
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultBaseDelay        = time.Second
	DefaultMaxDelay         = 30 * time.Second
	DefaultJitterPercent    = 20

	userIDPlaceholder = "{user_id}"
)

// ReconnectPolicy controls what happens after the channel closes without
// being asked to. MaxAttempts of zero retries forever.
//
// The attempt counter and backoff only reset once a connection has stayed
// open for StableAfter. It defaults to the base delay.
type ReconnectPolicy struct {
	Enabled       bool
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterPercent uint64
	MaxAttempts   int
	StableAfter   time.Duration
}

// DefaultReconnectPolicy retries forever with exponential backoff from 1s,
// capped at 30s, with 20% jitter.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		Enabled:       true,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		JitterPercent: DefaultJitterPercent,
	}
}

func (p ReconnectPolicy) stableAfter() time.Duration {
	if p.StableAfter > 0 {
		return p.StableAfter
	}
	if p.BaseDelay > 0 {
		return p.BaseDelay
	}
	return DefaultBaseDelay
}

// backoff returns a fresh schedule, or nil when reconnecting is disabled.
func (p ReconnectPolicy) backoff() retry.Backoff {
	if !p.Enabled {
		return nil
	}

	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}

	b := retry.NewExponential(base)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	if p.JitterPercent > 0 {
		b = retry.WithJitterPercent(p.JitterPercent, b)
	}
	if p.MaxAttempts > 0 {
		b = retry.WithMaxRetries(uint64(p.MaxAttempts), b)
	}
	return b
}

// Endpoint derives the push channel address from the storefront base URL:
// http maps to ws, https to wss, and {user_id} in pathTemplate is replaced
// by the path-escaped user id.
func Endpoint(baseURL, pathTemplate, userID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	var scheme string
	switch u.Scheme {
	case "http", "ws":
		scheme = "ws"
	case "https", "wss":
		scheme = "wss"
	default:
		return "", fmt.Errorf("base url %q: unsupported scheme %q", baseURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base url %q: missing host", baseURL)
	}

	if pathTemplate == "" {
		pathTemplate = DefaultPathTemplate
	}
	if !strings.HasPrefix(pathTemplate, "/") {
		pathTemplate = "/" + pathTemplate
	}
	path := strings.ReplaceAll(pathTemplate, userIDPlaceholder, url.PathEscape(userID))

	return scheme + "://" + u.Host + strings.TrimRight(u.EscapedPath(), "/") + path, nil
}
