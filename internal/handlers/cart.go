package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gohaste/storefront/internal/domain"
	"github.com/gohaste/storefront/internal/platform/httpx"
	"github.com/gohaste/storefront/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes the session-scoped cart endpoints.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers constructs handlers backed by the cart service.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{itemId}", h.setItemQuantity)
	r.Delete("/items/{itemId}", h.removeItem)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := requireSession(ctx, w)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(ctx, session.ID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := requireSession(ctx, w)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(ctx, session.ID); err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	SKU       string `json:"sku"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Currency  string `json:"currency"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url"`
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := requireSession(ctx, w)
	if !ok {
		return
	}

	var req addItemRequest
	if err := decodeJSONBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.carts.AddItem(ctx, session.ID, services.AddItemCommand{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		SKU:       req.SKU,
		Title:     req.Title,
		UnitPrice: req.UnitPrice,
		Currency:  req.Currency,
		Quantity:  req.Quantity,
		ImageURL:  req.ImageURL,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandlers) setItemQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := requireSession(ctx, w)
	if !ok {
		return
	}

	var req setQuantityRequest
	if err := decodeJSONBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}

	productID, err := h.resolveProductID(ctx, session.ID, chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	cart, err := h.carts.SetItemQuantity(ctx, session.ID, productID, *req.Quantity)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := requireSession(ctx, w)
	if !ok {
		return
	}

	productID, err := h.resolveProductID(ctx, session.ID, chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}

	cart, err := h.carts.RemoveItem(ctx, session.ID, productID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

// resolveProductID accepts either a line item ID or a product ID in the path.
// Unknown identifiers fall through as product IDs: the service treats them as
// a warned no-op rather than an error.
func (h *CartHandlers) resolveProductID(ctx context.Context, sessionID, itemID string) (string, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return "", services.ErrCartInvalidInput
	}

	cart, err := h.carts.GetCart(ctx, sessionID)
	if err != nil {
		return "", err
	}
	for _, item := range cart.Items {
		if item.ID == itemID {
			return item.ProductID, nil
		}
	}
	return itemID, nil
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "cart not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to process cart request", http.StatusInternalServerError))
	}
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartPayload struct {
	ID         string               `json:"id"`
	SessionID  string               `json:"session_id"`
	Currency   string               `json:"currency"`
	ItemsCount int                  `json:"items_count"`
	Items      []cartItemPayload    `json:"items"`
	Estimate   *cartEstimatePayload `json:"estimate,omitempty"`
	UpdatedAt  string               `json:"updated_at,omitempty"`
}

type cartItemPayload struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	SKU       string `json:"sku,omitempty"`
	Title     string `json:"title,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Currency  string `json:"currency"`
	ImageURL  string `json:"image_url,omitempty"`
	AddedAt   string `json:"added_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type cartEstimatePayload struct {
	Subtotal     int64                 `json:"subtotal"`
	Discount     int64                 `json:"discount"`
	Shipping     int64                 `json:"shipping"`
	Tax          int64                 `json:"tax"`
	Total        int64                 `json:"total"`
	FreeShipping bool                  `json:"free_shipping"`
	Discounts    []cartDiscountPayload `json:"discounts,omitempty"`
}

type cartDiscountPayload struct {
	Rule        string `json:"rule"`
	Description string `json:"description,omitempty"`
	Amount      int64  `json:"amount"`
}

func buildCartPayload(cart domain.Cart) cartPayload {
	payload := cartPayload{
		ID:         strings.TrimSpace(cart.ID),
		SessionID:  strings.TrimSpace(cart.SessionID),
		Currency:   strings.ToUpper(strings.TrimSpace(cart.Currency)),
		ItemsCount: len(cart.Items),
		Items:      buildCartItems(cart.Items),
	}
	if cart.Estimate != nil {
		payload.Estimate = buildEstimatePayload(*cart.Estimate)
	}
	if !cart.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(cart.UpdatedAt)
	}
	return payload
}

func buildCartItems(items []domain.LineItem) []cartItemPayload {
	if len(items) == 0 {
		return []cartItemPayload{}
	}

	payload := make([]cartItemPayload, 0, len(items))
	for _, item := range items {
		entry := cartItemPayload{
			ID:        strings.TrimSpace(item.ID),
			ProductID: strings.TrimSpace(item.ProductID),
			VariantID: strings.TrimSpace(item.VariantID),
			SKU:       strings.TrimSpace(item.SKU),
			Title:     strings.TrimSpace(item.Title),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Currency:  strings.ToUpper(strings.TrimSpace(item.Currency)),
			ImageURL:  strings.TrimSpace(item.ImageURL),
		}
		if !item.AddedAt.IsZero() {
			entry.AddedAt = formatTime(item.AddedAt)
		}
		if item.UpdatedAt != nil && !item.UpdatedAt.IsZero() {
			entry.UpdatedAt = formatTime(*item.UpdatedAt)
		}
		payload = append(payload, entry)
	}
	return payload
}

func buildEstimatePayload(estimate domain.PricingBreakdown) *cartEstimatePayload {
	payload := &cartEstimatePayload{
		Subtotal:     estimate.Subtotal,
		Discount:     estimate.Discount,
		Shipping:     estimate.Shipping,
		Tax:          estimate.Tax,
		Total:        estimate.Total,
		FreeShipping: estimate.FreeShipping,
	}
	for _, discount := range estimate.Discounts {
		payload.Discounts = append(payload.Discounts, cartDiscountPayload{
			Rule:        discount.Rule,
			Description: discount.Description,
			Amount:      discount.Amount,
		})
	}
	return payload
}
