package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gohaste/storefront/internal/commerce"
	"github.com/gohaste/storefront/internal/domain"
)

type stubCartService struct {
	getCart   func(ctx context.Context, sessionID string) (domain.Cart, error)
	clearCart func(ctx context.Context, sessionID string) error
}

func (s *stubCartService) GetCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	return s.getCart(ctx, sessionID)
}

func (s *stubCartService) AddItem(context.Context, string, AddItemCommand) (domain.Cart, error) {
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) SetItemQuantity(context.Context, string, string, int) (domain.Cart, error) {
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) RemoveItem(context.Context, string, string) (domain.Cart, error) {
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) ClearCart(ctx context.Context, sessionID string) error {
	if s.clearCart == nil {
		return nil
	}
	return s.clearCart(ctx, sessionID)
}

type stubSubmitter struct {
	submit func(ctx context.Context, sub commerce.OrderSubmission) (*domain.Order, error)
}

func (s *stubSubmitter) SubmitOrder(ctx context.Context, sub commerce.OrderSubmission) (*domain.Order, error) {
	return s.submit(ctx, sub)
}

type stubVerifier struct {
	verify func(ctx context.Context, token string) error
}

func (s *stubVerifier) VerifyPaymentMethod(ctx context.Context, token string) error {
	return s.verify(ctx, token)
}

type stubBooker struct {
	enabled   bool
	createJob func(ctx context.Context, req DeliveryJobRequest) (string, error)
}

func (s *stubBooker) Enabled() bool { return s.enabled }

func (s *stubBooker) CreateJob(ctx context.Context, req DeliveryJobRequest) (string, error) {
	return s.createJob(ctx, req)
}

func pricedCart(sessionID string) domain.Cart {
	return domain.Cart{
		ID:        "cart_1",
		SessionID: sessionID,
		Currency:  "GBP",
		Items: []domain.LineItem{
			{ProductID: "prod_1", Title: "Oak Table", UnitPrice: 18997, Quantity: 1, Currency: "GBP"},
		},
		Estimate: &domain.PricingBreakdown{
			Currency: "GBP",
			Subtotal: 18997,
			Shipping: 0,
			Tax:      1900,
			Total:    20897,
		},
	}
}

func validCheckout() CheckoutCommand {
	return CheckoutCommand{
		Email:        "buyer@example.com",
		PaymentToken: "pm_tok_1",
		ShippingAddress: domain.Address{
			Line1:      "1 Oak Lane",
			City:       "Bristol",
			PostalCode: "BS1 1AA",
		},
	}
}

func TestCheckoutSubmitsAndClearsCart(t *testing.T) {
	cleared := false
	var submitted commerce.OrderSubmission
	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Cart: &stubCartService{
			getCart: func(_ context.Context, sessionID string) (domain.Cart, error) {
				return pricedCart(sessionID), nil
			},
			clearCart: func(context.Context, string) error {
				cleared = true
				return nil
			},
		},
		Client: &stubSubmitter{
			submit: func(_ context.Context, sub commerce.OrderSubmission) (*domain.Order, error) {
				submitted = sub
				return &domain.Order{ID: "order_1", OrderNumber: "1001", Status: domain.OrderStatusPaid, Currency: "GBP", Total: 20897}, nil
			},
		},
		Clock: func() time.Time { return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewCheckoutService() error = %v", err)
	}

	result, err := svc.Checkout(context.Background(), "sess_1", validCheckout())
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if result.Order.ID != "order_1" {
		t.Fatalf("Checkout() order ID = %q, want order_1", result.Order.ID)
	}
	if result.Breakdown.Total != 20897 {
		t.Fatalf("Checkout() breakdown total = %d, want 20897", result.Breakdown.Total)
	}
	if !cleared {
		t.Fatal("Checkout() did not clear the cart")
	}
	if submitted.TotalMinor != 20897 || submitted.Currency != "GBP" {
		t.Fatalf("SubmitOrder received total %d currency %q", submitted.TotalMinor, submitted.Currency)
	}
	if submitted.Email != "buyer@example.com" {
		t.Fatalf("SubmitOrder received email %q", submitted.Email)
	}
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Cart: &stubCartService{
			getCart: func(_ context.Context, sessionID string) (domain.Cart, error) {
				return domain.Cart{SessionID: sessionID, Currency: "GBP"}, nil
			},
		},
		Client: &stubSubmitter{
			submit: func(context.Context, commerce.OrderSubmission) (*domain.Order, error) {
				t.Fatal("SubmitOrder should not be called for an empty cart")
				return nil, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewCheckoutService() error = %v", err)
	}

	if _, err := svc.Checkout(context.Background(), "sess_1", validCheckout()); !errors.Is(err, ErrCheckoutCartEmpty) {
		t.Fatalf("Checkout() error = %v, want ErrCheckoutCartEmpty", err)
	}
}

func TestCheckoutValidatesPayload(t *testing.T) {
	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Cart: &stubCartService{
			getCart: func(_ context.Context, sessionID string) (domain.Cart, error) {
				return pricedCart(sessionID), nil
			},
		},
		Client: &stubSubmitter{
			submit: func(context.Context, commerce.OrderSubmission) (*domain.Order, error) {
				t.Fatal("SubmitOrder should not be called for invalid input")
				return nil, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewCheckoutService() error = %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*CheckoutCommand)
	}{
		{name: "missing email", mutate: func(c *CheckoutCommand) { c.Email = "" }},
		{name: "malformed email", mutate: func(c *CheckoutCommand) { c.Email = "not-an-email" }},
		{name: "missing line1", mutate: func(c *CheckoutCommand) { c.ShippingAddress.Line1 = "" }},
		{name: "missing city", mutate: func(c *CheckoutCommand) { c.ShippingAddress.City = "" }},
		{name: "missing postal code", mutate: func(c *CheckoutCommand) { c.ShippingAddress.PostalCode = "  " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := validCheckout()
			tc.mutate(&cmd)
			if _, err := svc.Checkout(context.Background(), "sess_1", cmd); !errors.Is(err, ErrCheckoutInvalidInput) {
				t.Fatalf("Checkout() error = %v, want ErrCheckoutInvalidInput", err)
			}
		})
	}
}

func TestCheckoutSurfacesPaymentRejection(t *testing.T) {
	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Cart: &stubCartService{
			getCart: func(_ context.Context, sessionID string) (domain.Cart, error) {
				return pricedCart(sessionID), nil
			},
		},
		Client: &stubSubmitter{
			submit: func(context.Context, commerce.OrderSubmission) (*domain.Order, error) {
				t.Fatal("SubmitOrder should not be called after payment rejection")
				return nil, nil
			},
		},
		Payments: &stubVerifier{
			verify: func(context.Context, string) error { return errors.New("card declined") },
		},
	})
	if err != nil {
		t.Fatalf("NewCheckoutService() error = %v", err)
	}

	if _, err := svc.Checkout(context.Background(), "sess_1", validCheckout()); !errors.Is(err, ErrCheckoutPaymentRejected) {
		t.Fatalf("Checkout() error = %v, want ErrCheckoutPaymentRejected", err)
	}
}

func TestCheckoutSurfacesSubmissionErrors(t *testing.T) {
	cases := []struct {
		name    string
		backend error
		want    error
	}{
		{
			name:    "invalid input",
			backend: fmt.Errorf("%w: bad payload", commerce.ErrInvalidInput),
			want:    ErrCheckoutInvalidInput,
		},
		{
			name:    "backend down",
			backend: fmt.Errorf("%w: status 503", commerce.ErrUnavailable),
			want:    ErrCheckoutUnavailable,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cleared := false
			svc, err := NewCheckoutService(CheckoutServiceDeps{
				Cart: &stubCartService{
					getCart: func(_ context.Context, sessionID string) (domain.Cart, error) {
						return pricedCart(sessionID), nil
					},
					clearCart: func(context.Context, string) error {
						cleared = true
						return nil
					},
				},
				Client: &stubSubmitter{
					submit: func(context.Context, commerce.OrderSubmission) (*domain.Order, error) {
						return nil, tc.backend
					},
				},
			})
			if err != nil {
				t.Fatalf("NewCheckoutService() error = %v", err)
			}

			if _, err := svc.Checkout(context.Background(), "sess_1", validCheckout()); !errors.Is(err, tc.want) {
				t.Fatalf("Checkout() error = %v, want %v", err, tc.want)
			}
			if cleared {
				t.Fatal("Checkout() cleared the cart after a failed submission")
			}
		})
	}
}

func TestCheckoutSwallowsDeliveryFailures(t *testing.T) {
	var events []string
	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Cart: &stubCartService{
			getCart: func(_ context.Context, sessionID string) (domain.Cart, error) {
				return pricedCart(sessionID), nil
			},
		},
		Client: &stubSubmitter{
			submit: func(context.Context, commerce.OrderSubmission) (*domain.Order, error) {
				return &domain.Order{ID: "order_1", OrderNumber: "1001", Status: domain.OrderStatusPaid, Currency: "GBP", Total: 20897}, nil
			},
		},
		Delivery: &stubBooker{
			enabled: true,
			createJob: func(context.Context, DeliveryJobRequest) (string, error) {
				return "", errors.New("courier offline")
			},
		},
		Logger: func(_ context.Context, event string, _ map[string]any) {
			events = append(events, event)
		},
	})
	if err != nil {
		t.Fatalf("NewCheckoutService() error = %v", err)
	}

	result, err := svc.Checkout(context.Background(), "sess_1", validCheckout())
	if err != nil {
		t.Fatalf("Checkout() error = %v, want success despite delivery failure", err)
	}
	if result.DeliveryID != "" {
		t.Fatalf("Checkout() delivery ID = %q, want empty after booking failure", result.DeliveryID)
	}

	logged := false
	for _, event := range events {
		if event == "checkout.delivery_booking_failed" {
			logged = true
		}
	}
	if !logged {
		t.Fatalf("Checkout() events = %v, want checkout.delivery_booking_failed", events)
	}
}

func TestCheckoutBooksDeliveryWhenEnabled(t *testing.T) {
	var booked DeliveryJobRequest
	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Cart: &stubCartService{
			getCart: func(_ context.Context, sessionID string) (domain.Cart, error) {
				return pricedCart(sessionID), nil
			},
		},
		Client: &stubSubmitter{
			submit: func(context.Context, commerce.OrderSubmission) (*domain.Order, error) {
				return &domain.Order{ID: "order_1", OrderNumber: "1001", Status: domain.OrderStatusPaid, Currency: "GBP", Total: 20897}, nil
			},
		},
		Delivery: &stubBooker{
			enabled: true,
			createJob: func(_ context.Context, req DeliveryJobRequest) (string, error) {
				booked = req
				return "job_42", nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewCheckoutService() error = %v", err)
	}

	result, err := svc.Checkout(context.Background(), "sess_1", validCheckout())
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if result.DeliveryID != "job_42" {
		t.Fatalf("Checkout() delivery ID = %q, want job_42", result.DeliveryID)
	}
	if booked.Reference != "1001" {
		t.Fatalf("CreateJob reference = %q, want the order number", booked.Reference)
	}
	if len(booked.Items) != 1 {
		t.Fatalf("CreateJob items = %d, want 1", len(booked.Items))
	}
}
