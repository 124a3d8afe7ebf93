// Package backend is the HTTP client for the storefront's search, cart and
// newsletter endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/storefront/internal/core/logging"
	"github.com/colonyops/storefront/internal/core/search"
)

const (
	DefaultTimeout        = 10 * time.Second
	DefaultCSRFCookie     = "csrftoken"
	DefaultCSRFHeader     = "X-CSRFToken"
	DefaultSearchPath     = "/search/"
	DefaultCartAddPath    = "/cart/add/"
	DefaultNewsletterPath = "/newsletter/subscribe/"

	// maxBodySize bounds how much of a response body is read.
	maxBodySize = 4 << 20
)

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	CSRFCookie     string
	CSRFHeader     string
	SearchPath     string
	CartAddPath    string
	NewsletterPath string
}

// Client talks to the storefront backend. It keeps a cookie jar so the
// anti-forgery cookie set by the server is available to CSRFToken.
type Client struct {
	base *url.URL
	http *http.Client
	jar  http.CookieJar
	opts Options
	log  zerolog.Logger
}

// New validates opts and builds a client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", opts.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", opts.BaseURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	opts.CSRFCookie = orDefault(opts.CSRFCookie, DefaultCSRFCookie)
	opts.CSRFHeader = orDefault(opts.CSRFHeader, DefaultCSRFHeader)
	opts.SearchPath = orDefault(opts.SearchPath, DefaultSearchPath)
	opts.CartAddPath = orDefault(opts.CartAddPath, DefaultCartAddPath)
	opts.NewsletterPath = orDefault(opts.NewsletterPath, DefaultNewsletterPath)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		base: base,
		http: &http.Client{Timeout: opts.Timeout, Jar: jar},
		jar:  jar,
		opts: opts,
		log:  logging.Component("backend"),
	}, nil
}

// BaseURL returns a copy of the configured base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Jar returns the client's cookie jar so other transports (the push channel
// handshake) can present the same session cookies.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// CSRFToken returns the anti-forgery token from the cookie jar, or "" when
// the server has not set one yet.
func (c *Client) CSRFToken() string {
	for _, ck := range c.jar.Cookies(c.base) {
		if ck.Name == c.opts.CSRFCookie {
			if v, err := url.QueryUnescape(ck.Value); err == nil {
				return v
			}
			return ck.Value
		}
	}
	return ""
}

// Prime fetches the storefront root so the server can set its session and
// anti-forgery cookies.
func (c *Client) Prime(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/"), nil)
	if err != nil {
		return fmt.Errorf("build prime request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	return nil
}

type searchResponse struct {
	Results []search.Result `json:"results"`
}

// Search queries the product index. A 2xx response without results yields
// an empty, non-nil slice.
func (c *Client) Search(ctx context.Context, q string) ([]search.Result, error) {
	u := c.endpoint(c.opts.SearchPath) + "?q=" + url.QueryEscape(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var out searchResponse
	if err := c.roundTrip(req, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []search.Result{}
	}
	return out.Results, nil
}

type cartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cartResponse struct {
	CartCount *int `json:"cart_count"`
}

// AddToCart adds quantity units of productID and returns the new cart item
// count reported by the server.
func (c *Client) AddToCart(ctx context.Context, token, productID string, quantity int) (int, error) {
	req, err := c.newJSONRequest(ctx, c.opts.CartAddPath, token, cartRequest{
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		return 0, err
	}

	var out cartResponse
	if err := c.roundTrip(req, &out); err != nil {
		return 0, err
	}
	if out.CartCount == nil {
		return 0, fmt.Errorf("%w: missing cart_count", ErrMalformed)
	}
	return *out.CartCount, nil
}

type newsletterRequest struct {
	Email string `json:"email"`
}

// Subscribe registers email for the newsletter.
func (c *Client) Subscribe(ctx context.Context, token, email string) error {
	req, err := c.newJSONRequest(ctx, c.opts.NewsletterPath, token, newsletterRequest{Email: email})
	if err != nil {
		return err
	}
	return c.roundTrip(req, nil)
}

func (c *Client) newJSONRequest(ctx context.Context, path, token string, body any) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set(c.opts.CSRFHeader, token)
	}
	// Django checks the referer on secure requests.
	req.Header.Set("Referer", c.base.String()+"/")
	return req, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// roundTrip sends req and decodes a 2xx body into out (when non-nil).
// Non-2xx responses become *APIError carrying the server's error text.
func (c *Client) roundTrip(req *http.Request, out any) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		// A non-JSON error body still counts as an application failure.
		_ = json.Unmarshal(body, &e)
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(e.Error)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		c.log.Debug().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("request failed")
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")
	return resp, nil
}

func (c *Client) endpoint(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.base.String() + path
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
