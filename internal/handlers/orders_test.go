package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gohaste/storefront/internal/domain"
	"github.com/gohaste/storefront/internal/services"
)

type stubOrderService struct {
	listOrders func(ctx context.Context) ([]services.OrderView, error)
	getOrder   func(ctx context.Context, orderID string) (*services.OrderView, error)
}

func (s *stubOrderService) ListOrders(ctx context.Context) ([]services.OrderView, error) {
	return s.listOrders(ctx)
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (*services.OrderView, error) {
	return s.getOrder(ctx, orderID)
}

func newOrderRouter(service services.OrderService) chi.Router {
	router := chi.NewRouter()
	router.Route("/orders", NewOrderHandlers(service).Routes)
	return router
}

func paidOrderView() services.OrderView {
	return services.OrderView{
		Order: domain.Order{
			ID:            "order_1",
			OrderNumber:   "SF-1001",
			CustomerEmail: "ada@example.com",
			Status:        "paid",
			Currency:      "GBP",
			Total:         20897,
			Items: []domain.OrderItem{
				{ID: "oi_1", ProductID: "prod_1", Title: "Oak Table", Quantity: 1, UnitPrice: 18997},
			},
			ShippingAddress: &domain.Address{Line1: "1 Oak Lane", City: "London", PostalCode: "N1 9GU"},
			CreatedAt:       time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
		},
		StatusClass:  domain.StatusClassSuccess,
		DisplayTotal: "£208.97",
	}
}

func TestOrderHandlersListOrders(t *testing.T) {
	service := &stubOrderService{
		listOrders: func(context.Context) ([]services.OrderView, error) {
			return []services.OrderView{paidOrderView()}, nil
		},
	}

	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp orderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(resp.Orders))
	}
	order := resp.Orders[0]
	if order.StatusClass != string(domain.StatusClassSuccess) {
		t.Fatalf("expected success status class, got %q", order.StatusClass)
	}
	if order.DisplayTotal == "" {
		t.Fatal("expected display total to be rendered")
	}
	if order.ShippingAddress == nil || order.ShippingAddress.City != "London" {
		t.Fatalf("unexpected shipping address: %+v", order.ShippingAddress)
	}
	if len(order.Items) != 1 || order.Items[0].ProductID != "prod_1" {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
}

func TestOrderHandlersGetOrder(t *testing.T) {
	service := &stubOrderService{
		getOrder: func(_ context.Context, orderID string) (*services.OrderView, error) {
			if orderID != "order_1" {
				t.Fatalf("unexpected order ID %q", orderID)
			}
			view := paidOrderView()
			return &view, nil
		},
	}

	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/order_1", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order.ID != "order_1" || resp.Order.CreatedAt == "" {
		t.Fatalf("unexpected order payload: %+v", resp.Order)
	}
}

func TestOrderHandlersGetOrderNotFound(t *testing.T) {
	service := &stubOrderService{
		getOrder: func(context.Context, string) (*services.OrderView, error) {
			return nil, services.ErrOrderNotFound
		},
	}

	rr := httptest.NewRecorder()
	newOrderRouter(service).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/order_missing", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
