// Package shopapi is the HTTP client for the storefront backend: it fetches
// the product catalog and submits orders.
package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/dshills/storefront/internal/catalog"
	"github.com/dshills/storefront/internal/order"
)

// Paths below the origin.
const (
	APIPath     = "/api/weblarek"
	ContentPath = "/content/weblarek"
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 4 << 20

var (
	// ErrInvalidOrigin is returned by New for an origin that is not an
	// absolute http(s) URL.
	ErrInvalidOrigin = errors.New("invalid API origin")

	// ErrMalformedResponse is returned when a 2xx body lacks required fields.
	ErrMalformedResponse = errors.New("malformed API response")
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("shop api %d: %s", e.Status, e.Message)
}

// Observer is told about every request. internal/metrics implements it.
type Observer interface {
	ObserveAPI(operation, outcome string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveAPI(string, string, time.Duration) {}

// Client talks to the shop API. It never retries; failures are returned to
// the caller.
type Client struct {
	apiBase    string
	cdnBase    string
	httpClient *http.Client
	limiter    *rate.Limiter
	observer   Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit paces requests to rps per second with the given burst.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithObserver installs a request observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// New creates a client for the backend at origin, e.g.
// "https://larek-api.nomoreparties.co".
func New(origin string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrigin, origin)
	}
	base := u.String()

	c := &Client{
		apiBase:    base + APIPath,
		cdnBase:    base + ContentPath,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchCatalog returns every product. Image paths are resolved against the
// content CDN.
func (c *Client) FetchCatalog(ctx context.Context) ([]catalog.Product, error) {
	body, err := c.do(ctx, "catalog", http.MethodGet, "/product/", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	items := gjson.GetBytes(body, "items")
	if !items.IsArray() {
		return nil, fmt.Errorf("fetch catalog: %w: no items", ErrMalformedResponse)
	}

	products := make([]catalog.Product, 0, int(gjson.GetBytes(body, "total").Int()))
	var parseErr error
	items.ForEach(func(_, item gjson.Result) bool {
		p, err := c.parseProduct(item)
		if err != nil {
			parseErr = err
			return false
		}
		products = append(products, p)
		return true
	})
	if parseErr != nil {
		return nil, fmt.Errorf("fetch catalog: %w", parseErr)
	}
	return products, nil
}

func (c *Client) parseProduct(item gjson.Result) (catalog.Product, error) {
	id := item.Get("id")
	if !id.Exists() || id.String() == "" {
		return catalog.Product{}, fmt.Errorf("%w: product without id", ErrMalformedResponse)
	}

	p := catalog.Product{
		ID:          id.String(),
		Title:       item.Get("title").String(),
		Description: item.Get("description").String(),
		Category:    item.Get("category").String(),
	}
	if img := item.Get("image").String(); img != "" {
		p.Image = c.cdnBase + img
	}
	if price := item.Get("price"); price.Exists() && price.Type == gjson.Number {
		p.Price = catalog.Price(price.Int())
	}
	return p, nil
}

// SubmitOrder posts the order and returns the backend's confirmation.
func (c *Client) SubmitOrder(ctx context.Context, d order.Draft) (order.Result, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return order.Result{}, fmt.Errorf("submit order: %w", err)
	}

	body, err := c.do(ctx, "order", http.MethodPost, "/order", payload)
	if err != nil {
		return order.Result{}, fmt.Errorf("submit order: %w", err)
	}

	res := gjson.GetManyBytes(body, "id", "total")
	if !res[0].Exists() {
		return order.Result{}, fmt.Errorf("submit order: %w: no id", ErrMalformedResponse)
	}
	return order.Result{ID: res[0].String(), Total: res[1].Int()}, nil
}

// do performs one request and returns the 2xx body.
func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) (body []byte, err error) {
	start := time.Now()
	defer func() {
		c.observer.ObserveAPI(op, outcome(err), time.Since(start))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	return body, nil
}

func outcome(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &apiErr):
		return "status_" + fmt.Sprint(apiErr.Status)
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "transport"
	}
}
