// Package catalog talks to the remote commerce API. Raw payloads are
// normalized into domain types here and nowhere else.
package catalog

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

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const userAgent = "storefront/1.0"

// TokenSource supplies the bearer token for each request. An empty token
// sends the request unauthenticated.
type TokenSource interface {
	AuthToken(ctx context.Context) (string, error)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
	sfg     singleflight.Group // collapses identical concurrent GETs
	log     *zap.Logger
}

func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "commerce-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// client errors say nothing about the health of the API
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.Temporary()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var raw []map[string]any
	if err := c.getJSON(ctx, "/products", &raw); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]domain.Product, 0, len(raw))
	for _, m := range raw {
		out = append(out, NormalizeProduct(m))
	}
	return out, nil
}

func (c *Client) Product(ctx context.Context, productID string) (domain.Product, error) {
	var raw map[string]any
	if err := c.getJSON(ctx, "/products/"+url.PathEscape(productID), &raw); err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", productID, err)
	}
	return NormalizeProduct(raw), nil
}

// ProductSnapshot is the fresh copy of a product fetched when a detail view
// opens.
func (c *Client) ProductSnapshot(ctx context.Context, productID string) (domain.Product, error) {
	return c.Product(ctx, productID)
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var raw []map[string]any
	if err := c.getJSON(ctx, "/categories", &raw); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]domain.Category, 0, len(raw))
	for _, m := range raw {
		out = append(out, NormalizeCategory(m))
	}
	return out, nil
}

func (c *Client) Orders(ctx context.Context) ([]domain.Order, error) {
	var raw []map[string]any
	if err := c.getJSON(ctx, "/orders", &raw); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]domain.Order, 0, len(raw))
	for _, m := range raw {
		out = append(out, NormalizeOrder(m))
	}
	return out, nil
}

func (c *Client) Profile(ctx context.Context) (domain.Profile, error) {
	var raw map[string]any
	if err := c.getJSON(ctx, "/profile", &raw); err != nil {
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return NormalizeProfile(raw), nil
}

func (c *Client) InitialVariations(ctx context.Context, productID string) ([]domain.VariationOption, error) {
	return c.variations(ctx, "/products/"+url.PathEscape(productID)+"/variations")
}

// ChildVariations returns the options below optionID; an empty slice marks
// optionID as a leaf.
func (c *Client) ChildVariations(ctx context.Context, productID, optionID string) ([]domain.VariationOption, error) {
	return c.variations(ctx, "/products/"+url.PathEscape(productID)+"/variations/"+url.PathEscape(optionID)+"/children")
}

// VariationAncestors returns the human readable path to optionID, for example
// "Red • 128GB".
func (c *Client) VariationAncestors(ctx context.Context, productID, optionID string) (string, error) {
	path := "/products/" + url.PathEscape(productID) + "/variations/" + url.PathEscape(optionID) + "/ancestors"
	data, err := c.get(ctx, path)
	if err != nil {
		return "", fmt.Errorf("variation ancestors %s: %w", optionID, err)
	}
	return decodeAncestors(data)
}

type wishlistToggleRequest struct {
	ProductID string `json:"product_id"`
	State     bool   `json:"state"`
}

// ToggleWishlist sets the remote wishlist state of productID.
func (c *Client) ToggleWishlist(ctx context.Context, productID string, state bool) error {
	_, err := c.send(ctx, http.MethodPost, "/wishlist/toggle", wishlistToggleRequest{ProductID: productID, State: state})
	if err != nil {
		return fmt.Errorf("toggle wishlist %s: %w", productID, err)
	}
	return nil
}

func (c *Client) variations(ctx context.Context, path string) ([]domain.VariationOption, error) {
	var raw []map[string]any
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("variations %s: %w", path, err)
	}
	out := make([]domain.VariationOption, 0, len(raw))
	for _, m := range raw {
		out = append(out, NormalizeVariationOption(m))
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	data, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// get collapses identical concurrent GETs. The shared request is detached
// from the caller that started it and bounded by the http.Client timeout;
// each caller stops waiting when its own context ends.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	ch := c.sfg.DoChan(http.MethodGet+" "+path, func() (interface{}, error) {
		return c.send(context.WithoutCancel(ctx), http.MethodGet, path, nil)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.log.Debug("shared in-flight request", zap.String("path", path))
		}
		return res.Val.([]byte), nil
	}
}

// send runs one request through the circuit breaker and returns the response
// body with any {"data": ...} envelope removed.
func (c *Client) send(ctx context.Context, method, path string, body any) ([]byte, error) {
	data, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, method, path, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return unwrapData(data), nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.AuthToken(ctx)
		if err != nil {
			c.log.Warn("auth token lookup failed, sending unauthenticated", zap.Error(err))
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	c.log.Debug("commerce api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: errorMessage(respBody),
		}
	}
	return respBody, nil
}

// unwrapData strips a top-level {"data": ...} envelope. Bodies without one
// are returned as they are.
func unwrapData(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return body
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return body
	}
	if data, ok := envelope["data"]; ok {
		return data
	}
	return body
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// decodeAncestors accepts a plain string, a list of labels or an object
// carrying the display name.
func decodeAncestors(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("decode ancestors: %w", err)
		}
		return s, nil
	case '[':
		var items []any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return "", fmt.Errorf("decode ancestors: %w", err)
		}
		labels := make([]string, 0, len(items))
		for _, it := range items {
			switch v := it.(type) {
			case string:
				labels = append(labels, v)
			case map[string]any:
				if l := firstString(v, "label", "option_label", "name", "value"); l != "" {
					labels = append(labels, l)
				}
			}
		}
		return strings.Join(labels, " • "), nil
	case '{':
		var m map[string]any
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return "", fmt.Errorf("decode ancestors: %w", err)
		}
		if s := firstString(m, "display_name", "variation_display_name", "path", "label"); s != "" {
			return s, nil
		}
		if nested, ok := m["ancestors"]; ok {
			raw, err := json.Marshal(nested)
			if err != nil {
				return "", fmt.Errorf("decode ancestors: %w", err)
			}
			return decodeAncestors(raw)
		}
		return "", nil
	}
	return "", fmt.Errorf("decode ancestors: unexpected payload %q", trimmed)
}
