// Package commerce wraps the opaque commerce backend's REST API. Every call
// is a single attempt with no retry or backoff; transport failures surface as
// ErrUnavailable and callers decide whether to degrade.
package commerce

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

	"github.com/gohaste/storefront/internal/domain"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrInvalidInput indicates the backend rejected the request payload.
	ErrInvalidInput = errors.New("commerce: invalid input")
	// ErrNotFound indicates the requested resource does not exist upstream.
	ErrNotFound = errors.New("commerce: resource not found")
	// ErrUnavailable indicates the backend could not be reached or answered with a server error.
	ErrUnavailable = errors.New("commerce: backend unavailable")
)

// Config collects the settings needed to talk to the commerce backend.
type Config struct {
	BaseURL    string
	Token      string
	Currency   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

// Client issues catalog, order, and cart calls against the commerce backend.
type Client struct {
	baseURL  string
	token    string
	currency string
	http     *http.Client
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewClient constructs a commerce client from the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidInput)
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("%w: invalid base URL: %v", ErrInvalidInput, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "GBP"
	}

	return &Client{
		baseURL:  base,
		token:    strings.TrimSpace(cfg.Token),
		currency: currency,
		http:     httpClient,
		logger:   cfg.Logger,
	}, nil
}

// ListProducts fetches the full product catalog.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	body, err := c.do(ctx, http.MethodGet, nil, "products")
	if err != nil {
		return nil, err
	}
	return c.decodeProductList(ctx, body), nil
}

// GetProduct fetches a single product by identifier.
func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}
	body, err := c.do(ctx, http.MethodGet, nil, "products", id)
	if err != nil {
		return nil, err
	}
	return c.decodeProduct(ctx, body), nil
}

// ListOrders fetches the order history.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	body, err := c.do(ctx, http.MethodGet, nil, "orders")
	if err != nil {
		return nil, err
	}
	return c.decodeOrderList(ctx, body), nil
}

// GetOrder fetches a single order by identifier.
func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	body, err := c.do(ctx, http.MethodGet, nil, "orders", id)
	if err != nil {
		return nil, err
	}
	return c.decodeOrder(ctx, body), nil
}

// OrderSubmission is the checkout payload sent to the backend.
type OrderSubmission struct {
	Email          string
	Currency       string
	Items          []domain.LineItem
	ShippingAddr   domain.Address
	PaymentToken   string
	TotalMinor     int64
	IdempotencyKey string
}

// SubmitOrder posts a new order. Unlike the read paths, submission errors
// must reach the shopper, so decode failures are reported rather than defaulted.
func (c *Client) SubmitOrder(ctx context.Context, sub OrderSubmission) (*domain.Order, error) {
	if len(sub.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no line items", ErrInvalidInput)
	}

	payload, err := c.encodeSubmission(sub)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	if key := strings.TrimSpace(sub.IdempotencyKey); key != "" {
		headers.Set("Idempotency-Key", key)
	}

	body, err := c.doWithHeaders(ctx, http.MethodPost, payload, headers, "orders")
	if err != nil {
		return nil, err
	}

	order := c.decodeOrder(ctx, body)
	if order == nil {
		return nil, fmt.Errorf("%w: order submission returned an unreadable response", ErrUnavailable)
	}
	return order, nil
}

// RemoteCart identifies a server-side cart on backends using the cart-style API.
type RemoteCart struct {
	ID       string
	Currency string
}

// CreateCart opens a new server-side cart.
func (c *Client) CreateCart(ctx context.Context) (*RemoteCart, error) {
	body, err := c.do(ctx, http.MethodPost, []byte(`{}`), "carts")
	if err != nil {
		return nil, err
	}
	cart := c.decodeRemoteCart(ctx, body)
	if cart == nil {
		return nil, fmt.Errorf("%w: cart creation returned an unreadable response", ErrUnavailable)
	}
	return cart, nil
}

// AddLineItem appends a line to a server-side cart.
func (c *Client) AddLineItem(ctx context.Context, cartID string, item domain.LineItem) error {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return fmt.Errorf("%w: cart id is required", ErrInvalidInput)
	}
	payload, err := json.Marshal(map[string]any{
		"variant_id": item.VariantID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	_, err = c.do(ctx, http.MethodPost, payload, "carts", cartID, "line-items")
	return err
}

// UpdateLineItem replaces a line's quantity on a server-side cart.
func (c *Client) UpdateLineItem(ctx context.Context, cartID, itemID string, quantity int) error {
	cartID = strings.TrimSpace(cartID)
	itemID = strings.TrimSpace(itemID)
	if cartID == "" || itemID == "" {
		return fmt.Errorf("%w: cart id and item id are required", ErrInvalidInput)
	}
	payload, err := json.Marshal(map[string]any{"quantity": quantity})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	_, err = c.do(ctx, http.MethodPost, payload, "carts", cartID, "line-items", itemID)
	return err
}

// RemoveLineItem deletes a line from a server-side cart.
func (c *Client) RemoveLineItem(ctx context.Context, cartID, itemID string) error {
	cartID = strings.TrimSpace(cartID)
	itemID = strings.TrimSpace(itemID)
	if cartID == "" || itemID == "" {
		return fmt.Errorf("%w: cart id and item id are required", ErrInvalidInput)
	}
	_, err := c.do(ctx, http.MethodDelete, nil, "carts", cartID, "line-items", itemID)
	return err
}

// CompleteCart finalises a server-side cart into an order.
func (c *Client) CompleteCart(ctx context.Context, cartID string) (*domain.Order, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, fmt.Errorf("%w: cart id is required", ErrInvalidInput)
	}
	body, err := c.do(ctx, http.MethodPost, []byte(`{}`), "carts", cartID, "complete")
	if err != nil {
		return nil, err
	}
	order := c.decodeOrder(ctx, body)
	if order == nil {
		return nil, fmt.Errorf("%w: cart completion returned an unreadable response", ErrUnavailable)
	}
	return order, nil
}

func (c *Client) do(ctx context.Context, method string, payload []byte, pathParts ...string) ([]byte, error) {
	return c.doWithHeaders(ctx, method, payload, nil, pathParts...)
}

func (c *Client) doWithHeaders(ctx context.Context, method string, payload []byte, headers http.Header, pathParts ...string) ([]byte, error) {
	endpoint, err := url.JoinPath(c.baseURL, pathParts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for name, values := range headers {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, endpoint, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if readErr != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, readErr)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, method, endpoint)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: status %d: %s", ErrInvalidInput, resp.StatusCode, truncate(body, 256))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, truncate(body, 256))
	}

	return body, nil
}

func (c *Client) logEvent(ctx context.Context, event string, fields map[string]any) {
	if c.logger != nil {
		c.logger(ctx, event, fields)
	}
}

func truncate(body []byte, limit int) string {
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		text = text[:limit]
	}
	return text
}
