package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gohaste/storefront/internal/commerce"
	"github.com/gohaste/storefront/internal/domain"
)

// ErrCheckoutInvalidInput indicates the checkout payload is unusable.
var ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")

// ErrCheckoutCartEmpty indicates there is nothing to purchase.
var ErrCheckoutCartEmpty = errors.New("checkout service: cart is empty")

// ErrCheckoutPaymentRejected indicates the payment method failed verification.
var ErrCheckoutPaymentRejected = errors.New("checkout service: payment method rejected")

// ErrCheckoutUnavailable indicates the commerce backend rejected or could not accept the order.
var ErrCheckoutUnavailable = errors.New("checkout service: unavailable")

var (
	errCheckoutCartRequired   = errors.New("checkout service: cart service is required")
	errCheckoutClientRequired = errors.New("checkout service: commerce client is required")
)

// OrderSubmitter is the write slice of the commerce backend.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, sub commerce.OrderSubmission) (*domain.Order, error)
}

// PaymentVerifier checks a tokenised payment method before submission.
type PaymentVerifier interface {
	VerifyPaymentMethod(ctx context.Context, token string) error
}

// DeliveryBooker books a courier job for a submitted order.
type DeliveryBooker interface {
	Enabled() bool
	CreateJob(ctx context.Context, req DeliveryJobRequest) (string, error)
}

// DeliveryJobRequest describes the courier booking for an order.
type DeliveryJobRequest struct {
	Reference   string
	Destination domain.Address
	Items       []domain.LineItem
}

// CheckoutCommand is the shopper-supplied checkout payload.
type CheckoutCommand struct {
	Email           string
	ShippingAddress domain.Address
	PaymentToken    string
	IdempotencyKey  string
}

// CheckoutResult reports the created order and the priced cart it was built from.
type CheckoutResult struct {
	Order      domain.Order
	Breakdown  domain.PricingBreakdown
	DeliveryID string
}

// CheckoutServiceDeps wires the checkout collaborators.
type CheckoutServiceDeps struct {
	Cart     CartService
	Client   OrderSubmitter
	Payments PaymentVerifier
	Delivery DeliveryBooker
	Clock    func() time.Time
	Logger   func(context.Context, string, map[string]any)
}

type checkoutService struct {
	cart     CartService
	client   OrderSubmitter
	payments PaymentVerifier
	delivery DeliveryBooker
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewCheckoutService constructs a CheckoutService.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Cart == nil {
		return nil, errCheckoutCartRequired
	}
	if deps.Client == nil {
		return nil, errCheckoutClientRequired
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &checkoutService{
		cart:     deps.Cart,
		client:   deps.Client,
		payments: deps.Payments,
		delivery: deps.Delivery,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

// Checkout prices the session's cart, verifies payment when configured,
// submits the order, and clears the cart. Submission failures surface to the
// shopper; delivery booking failures are logged and swallowed.
func (s *checkoutService) Checkout(ctx context.Context, sessionID string, cmd CheckoutCommand) (CheckoutResult, error) {
	if err := validateCheckout(cmd); err != nil {
		return CheckoutResult{}, err
	}

	cart, err := s.cart.GetCart(ctx, sessionID)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}
	if len(cart.Items) == 0 {
		return CheckoutResult{}, ErrCheckoutCartEmpty
	}
	if cart.Estimate == nil {
		return CheckoutResult{}, fmt.Errorf("%w: cart has no price estimate", ErrCheckoutUnavailable)
	}
	breakdown := *cart.Estimate

	if s.payments != nil && strings.TrimSpace(cmd.PaymentToken) != "" {
		if err := s.payments.VerifyPaymentMethod(ctx, cmd.PaymentToken); err != nil {
			s.logger(ctx, "checkout.payment_rejected", map[string]any{"sessionId": sessionID, "error": err.Error()})
			return CheckoutResult{}, fmt.Errorf("%w: %v", ErrCheckoutPaymentRejected, err)
		}
	}

	order, err := s.client.SubmitOrder(ctx, commerce.OrderSubmission{
		Email:          cmd.Email,
		Currency:       breakdown.Currency,
		Items:          cart.Items,
		ShippingAddr:   cmd.ShippingAddress,
		PaymentToken:   cmd.PaymentToken,
		TotalMinor:     breakdown.Total,
		IdempotencyKey: cmd.IdempotencyKey,
	})
	if err != nil {
		if errors.Is(err, commerce.ErrInvalidInput) {
			return CheckoutResult{}, fmt.Errorf("%w: %v", ErrCheckoutInvalidInput, err)
		}
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}

	if err := s.cart.ClearCart(ctx, sessionID); err != nil {
		// The order exists upstream; a stale local cart is the lesser harm.
		s.logger(ctx, "checkout.cart_clear_failed", map[string]any{"sessionId": sessionID, "error": err.Error()})
	}

	result := CheckoutResult{Order: *order, Breakdown: breakdown}
	result.DeliveryID = s.bookDelivery(ctx, *order, cart.Items, cmd.ShippingAddress)

	s.logger(ctx, "checkout.completed", map[string]any{
		"sessionId": sessionID,
		"orderId":   order.ID,
		"total":     breakdown.Total,
	})
	return result, nil
}

func (s *checkoutService) bookDelivery(ctx context.Context, order domain.Order, items []domain.LineItem, dest domain.Address) string {
	if s.delivery == nil || !s.delivery.Enabled() {
		return ""
	}

	reference := order.OrderNumber
	if reference == "" {
		reference = order.ID
	}

	jobID, err := s.delivery.CreateJob(ctx, DeliveryJobRequest{
		Reference:   reference,
		Destination: dest,
		Items:       items,
	})
	if err != nil {
		s.logger(ctx, "checkout.delivery_booking_failed", map[string]any{"orderId": order.ID, "error": err.Error()})
		return ""
	}
	return jobID
}

func validateCheckout(cmd CheckoutCommand) error {
	email := strings.TrimSpace(cmd.Email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrCheckoutInvalidInput)
	}
	addr := cmd.ShippingAddress
	if strings.TrimSpace(addr.Line1) == "" || strings.TrimSpace(addr.City) == "" || strings.TrimSpace(addr.PostalCode) == "" {
		return fmt.Errorf("%w: shipping address requires line1, city, and postal code", ErrCheckoutInvalidInput)
	}
	return nil
}
