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

const maxCheckoutBodySize = 32 * 1024

// CheckoutHandlers exposes the order submission endpoint.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs handlers backed by the checkout service.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes wires the /checkout endpoint onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.submit)
}

type checkoutRequest struct {
	Email           string         `json:"email"`
	PaymentToken    string         `json:"payment_token"`
	ShippingAddress addressPayload `json:"shipping_address"`
}

type addressPayload struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

type checkoutResponse struct {
	Order      orderPayload         `json:"order"`
	Estimate   *cartEstimatePayload `json:"estimate,omitempty"`
	DeliveryID string               `json:"delivery_id,omitempty"`
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := requireSession(ctx, w)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := decodeJSONBody(r, maxCheckoutBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	result, err := h.checkout.Checkout(ctx, session.ID, services.CheckoutCommand{
		Email:           req.Email,
		PaymentToken:    req.PaymentToken,
		ShippingAddress: addressFromPayload(req.ShippingAddress),
		IdempotencyKey:  strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, checkoutResponse{
		Order:      buildOrderPayload(result.Order, nil),
		Estimate:   buildEstimatePayload(result.Breakdown),
		DeliveryID: result.DeliveryID,
	})
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutCartEmpty):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cannot check out an empty cart", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutPaymentRejected):
		httpx.WriteError(ctx, w, httpx.NewError("payment_rejected", "payment method was rejected", http.StatusPaymentRequired))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "order could not be submitted; try again", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to process checkout", http.StatusInternalServerError))
	}
}

func addressFromPayload(payload addressPayload) domain.Address {
	return domain.Address{
		FirstName:   strings.TrimSpace(payload.FirstName),
		LastName:    strings.TrimSpace(payload.LastName),
		Line1:       strings.TrimSpace(payload.Line1),
		Line2:       strings.TrimSpace(payload.Line2),
		City:        strings.TrimSpace(payload.City),
		PostalCode:  strings.TrimSpace(payload.PostalCode),
		CountryCode: strings.ToUpper(strings.TrimSpace(payload.CountryCode)),
		Phone:       strings.TrimSpace(payload.Phone),
	}
}

func buildAddressPayload(addr domain.Address) addressPayload {
	return addressPayload{
		FirstName:   addr.FirstName,
		LastName:    addr.LastName,
		Line1:       addr.Line1,
		Line2:       addr.Line2,
		City:        addr.City,
		PostalCode:  addr.PostalCode,
		CountryCode: addr.CountryCode,
		Phone:       addr.Phone,
	}
}
