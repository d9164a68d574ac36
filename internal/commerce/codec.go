package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gohaste/storefront/internal/domain"
	"github.com/gohaste/storefront/internal/platform/money"
)

// The backend's response shapes drift between deployments: some wrap
// collections in an envelope ({"products": [...]}), some nest them under
// "data", some return bare arrays. Decoding mirrors the defensive
// `data.products || data || []` defaulting: an unrecognisable shape becomes
// an empty collection, never a decode error.

type productPayload struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Handle      string           `json:"handle"`
	Description string           `json:"description"`
	Price       float64          `json:"price"`
	Currency    string           `json:"currency"`
	Image       string           `json:"image"`
	Thumbnail   string           `json:"thumbnail"`
	Inventory   int              `json:"inventory"`
	Variants    []variantPayload `json:"variants"`
}

type variantPayload struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	SKU       string  `json:"sku"`
	Price     float64 `json:"price"`
	Inventory int     `json:"inventory_quantity"`
}

type orderPayload struct {
	ID          string             `json:"id"`
	OrderNumber string             `json:"order_number"`
	Email       string             `json:"email"`
	Status      string             `json:"status"`
	Currency    string             `json:"currency"`
	Total       float64            `json:"total"`
	Items       []orderItemPayload `json:"items"`
	CreatedAt   string             `json:"created_at"`
}

type orderItemPayload struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type cartPayload struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
}

func (c *Client) decodeProductList(ctx context.Context, body []byte) []domain.Product {
	raw := extractCollection(body, "products")
	if raw == nil {
		c.logEvent(ctx, "commerce.decode_degraded", map[string]any{"resource": "products"})
		return []domain.Product{}
	}

	var payloads []productPayload
	if err := json.Unmarshal(raw, &payloads); err != nil {
		c.logEvent(ctx, "commerce.decode_degraded", map[string]any{"resource": "products", "error": err.Error()})
		return []domain.Product{}
	}

	products := make([]domain.Product, 0, len(payloads))
	for _, p := range payloads {
		products = append(products, c.toProduct(p))
	}
	return products
}

func (c *Client) decodeProduct(ctx context.Context, body []byte) *domain.Product {
	raw := extractObject(body, "product")
	if raw == nil {
		c.logEvent(ctx, "commerce.decode_degraded", map[string]any{"resource": "product"})
		return nil
	}

	var payload productPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.ID == "" {
		c.logEvent(ctx, "commerce.decode_degraded", map[string]any{"resource": "product"})
		return nil
	}

	product := c.toProduct(payload)
	return &product
}

func (c *Client) decodeOrderList(ctx context.Context, body []byte) []domain.Order {
	raw := extractCollection(body, "orders")
	if raw == nil {
		c.logEvent(ctx, "commerce.decode_degraded", map[string]any{"resource": "orders"})
		return []domain.Order{}
	}

	var payloads []orderPayload
	if err := json.Unmarshal(raw, &payloads); err != nil {
		c.logEvent(ctx, "commerce.decode_degraded", map[string]any{"resource": "orders", "error": err.Error()})
		return []domain.Order{}
	}

	orders := make([]domain.Order, 0, len(payloads))
	for _, p := range payloads {
		orders = append(orders, c.toOrder(p))
	}
	return orders
}

func (c *Client) decodeOrder(ctx context.Context, body []byte) *domain.Order {
	raw := extractObject(body, "order")
	if raw == nil {
		c.logEvent(ctx, "commerce.decode_degraded", map[string]any{"resource": "order"})
		return nil
	}

	var payload orderPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.ID == "" {
		c.logEvent(ctx, "commerce.decode_degraded", map[string]any{"resource": "order"})
		return nil
	}

	order := c.toOrder(payload)
	return &order
}

func (c *Client) decodeRemoteCart(ctx context.Context, body []byte) *RemoteCart {
	raw := extractObject(body, "cart")
	if raw == nil {
		return nil
	}

	var payload cartPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.ID == "" {
		c.logEvent(ctx, "commerce.decode_degraded", map[string]any{"resource": "cart"})
		return nil
	}

	currency := strings.ToUpper(strings.TrimSpace(payload.Currency))
	if currency == "" {
		currency = c.currency
	}
	return &RemoteCart{ID: payload.ID, Currency: currency}
}

func (c *Client) toProduct(p productPayload) domain.Product {
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = c.currency
	}

	image := strings.TrimSpace(p.Image)
	if image == "" {
		image = strings.TrimSpace(p.Thumbnail)
	}

	variants := make([]domain.Variant, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, domain.Variant{
			ID:                v.ID,
			Title:             v.Title,
			SKU:               v.SKU,
			Price:             c.toMinor(v.Price, currency),
			InventoryQuantity: v.Inventory,
		})
	}

	return domain.Product{
		ID:          p.ID,
		Title:       strings.TrimSpace(p.Title),
		Handle:      strings.TrimSpace(p.Handle),
		Description: strings.TrimSpace(p.Description),
		Price:       c.toMinor(p.Price, currency),
		Currency:    currency,
		ImageURL:    image,
		InStock:     p.Inventory > 0,
		Inventory:   p.Inventory,
		Variants:    variants,
	}
}

func (c *Client) toOrder(p orderPayload) domain.Order {
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = c.currency
	}

	items := make([]domain.OrderItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, domain.OrderItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Title:     strings.TrimSpace(item.Title),
			Quantity:  item.Quantity,
			UnitPrice: c.toMinor(item.Price, currency),
		})
	}

	return domain.Order{
		ID:            p.ID,
		OrderNumber:   strings.TrimSpace(p.OrderNumber),
		CustomerEmail: strings.TrimSpace(p.Email),
		Status:        domain.OrderStatus(strings.ToLower(strings.TrimSpace(p.Status))),
		Currency:      currency,
		Total:         c.toMinor(p.Total, currency),
		Items:         items,
		CreatedAt:     parseTime(p.CreatedAt),
	}
}

func (c *Client) toMinor(amount float64, currency string) int64 {
	minor, err := money.ToMinorUnits(amount, currency)
	if err != nil {
		minor, _ = money.ToMinorUnits(amount, c.currency)
	}
	return minor
}

func (c *Client) encodeSubmission(sub OrderSubmission) ([]byte, error) {
	currency := strings.ToUpper(strings.TrimSpace(sub.Currency))
	if currency == "" {
		currency = c.currency
	}

	items := make([]map[string]any, 0, len(sub.Items))
	for _, item := range sub.Items {
		price, err := money.FromMinorUnits(item.UnitPrice, currency)
		if err != nil {
			return nil, fmt.Errorf("%w: line %s: %v", ErrInvalidInput, item.ProductID, err)
		}
		items = append(items, map[string]any{
			"product_id": item.ProductID,
			"variant_id": item.VariantID,
			"title":      item.Title,
			"quantity":   item.Quantity,
			"price":      price,
		})
	}

	total, err := money.FromMinorUnits(sub.TotalMinor, currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	payload := map[string]any{
		"email":    strings.TrimSpace(sub.Email),
		"currency": currency,
		"items":    items,
		"total":    total,
		"shipping_address": map[string]any{
			"first_name":   sub.ShippingAddr.FirstName,
			"last_name":    sub.ShippingAddr.LastName,
			"address_1":    sub.ShippingAddr.Line1,
			"address_2":    sub.ShippingAddr.Line2,
			"city":         sub.ShippingAddr.City,
			"postal_code":  sub.ShippingAddr.PostalCode,
			"country_code": sub.ShippingAddr.CountryCode,
			"phone":        sub.ShippingAddr.Phone,
		},
	}
	if token := strings.TrimSpace(sub.PaymentToken); token != "" {
		payload["payment"] = map[string]any{"token": token}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return encoded, nil
}

// extractCollection locates the JSON array for the named resource. It accepts
// a bare array, an envelope keyed by the resource name, or either of those
// nested under "data". Anything else yields nil.
func extractCollection(body []byte, key string) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		return json.RawMessage(trimmed)
	}
	if trimmed[0] != '{' {
		return nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil
	}
	if raw, ok := envelope[key]; ok {
		if inner := bytes.TrimSpace(raw); len(inner) > 0 && inner[0] == '[' {
			return json.RawMessage(inner)
		}
		return nil
	}
	if raw, ok := envelope["data"]; ok {
		return extractCollection(raw, key)
	}
	return nil
}

// extractObject locates the JSON object for the named resource, accepting the
// same envelope variations as extractCollection.
func extractObject(body []byte, key string) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil
	}
	if raw, ok := envelope[key]; ok {
		if inner := bytes.TrimSpace(raw); len(inner) > 0 && inner[0] == '{' {
			return json.RawMessage(inner)
		}
		return nil
	}
	if raw, ok := envelope["data"]; ok {
		return extractObject(raw, key)
	}
	// A bare object without an envelope is the resource itself.
	return json.RawMessage(trimmed)
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}
