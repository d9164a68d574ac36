package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gohaste/storefront/internal/domain"
)

type stubOrderClient struct {
	listOrders func(ctx context.Context) ([]domain.Order, error)
	getOrder   func(ctx context.Context, id string) (*domain.Order, error)
}

func (s *stubOrderClient) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.listOrders(ctx)
}

func (s *stubOrderClient) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.getOrder(ctx, id)
}

func TestOrderListDecoratesViews(t *testing.T) {
	svc, err := NewOrderService(OrderServiceDeps{
		Client: &stubOrderClient{
			listOrders: func(context.Context) ([]domain.Order, error) {
				return []domain.Order{
					{ID: "order_1", Status: domain.OrderStatusPaid, Currency: "GBP", Total: 20897},
					{ID: "order_2", Status: "mystery", Currency: "GBP", Total: 500},
				}, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewOrderService() error = %v", err)
	}

	views, err := svc.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("ListOrders() = %d views, want 2", len(views))
	}
	if views[0].StatusClass != domain.StatusClassSuccess {
		t.Fatalf("paid order classified %q, want success", views[0].StatusClass)
	}
	if views[1].StatusClass != domain.StatusClassUnknown {
		t.Fatalf("mystery order classified %q, want unknown", views[1].StatusClass)
	}
	if views[0].DisplayTotal == "" || !strings.Contains(views[0].DisplayTotal, "208.97") {
		t.Fatalf("DisplayTotal = %q, want formatted 208.97", views[0].DisplayTotal)
	}
}

func TestOrderListDegradesToEmpty(t *testing.T) {
	var events []string
	svc, err := NewOrderService(OrderServiceDeps{
		Client: &stubOrderClient{
			listOrders: func(context.Context) ([]domain.Order, error) {
				return nil, errors.New("backend down")
			},
		},
		Logger: func(_ context.Context, event string, _ map[string]any) {
			events = append(events, event)
		},
	})
	if err != nil {
		t.Fatalf("NewOrderService() error = %v", err)
	}

	views, err := svc.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("ListOrders() error = %v, want empty degradation", err)
	}
	if views == nil || len(views) != 0 {
		t.Fatalf("ListOrders() = %v, want empty non-nil slice", views)
	}
	if len(events) != 1 || events[0] != "orders.list_degraded" {
		t.Fatalf("events = %v, want orders.list_degraded", events)
	}
}

func TestOrderGet(t *testing.T) {
	svc, err := NewOrderService(OrderServiceDeps{
		Client: &stubOrderClient{
			getOrder: func(_ context.Context, id string) (*domain.Order, error) {
				if id != "order_1" {
					return nil, errors.New("no such order")
				}
				return &domain.Order{ID: "order_1", Status: domain.OrderStatusPending, Currency: "GBP", Total: 1000}, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewOrderService() error = %v", err)
	}

	view, err := svc.GetOrder(context.Background(), "order_1")
	if err != nil {
		t.Fatalf("GetOrder() error = %v", err)
	}
	if view.StatusClass != domain.StatusClassPending {
		t.Fatalf("GetOrder() class = %q, want pending", view.StatusClass)
	}

	if _, err := svc.GetOrder(context.Background(), "order_404"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("GetOrder() error = %v, want ErrOrderNotFound", err)
	}
	if _, err := svc.GetOrder(context.Background(), ""); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("GetOrder() error = %v, want ErrOrderInvalidInput", err)
	}
}
