package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gohaste/storefront/internal/domain"
)

type stubCatalogService struct {
	listProducts func(ctx context.Context) ([]domain.Product, error)
}

func (s *stubCatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.listProducts(ctx)
}

func (s *stubCatalogService) GetProduct(context.Context, string) (*domain.Product, error) {
	return nil, errors.New("not implemented")
}

type stubOrderService struct {
	listOrders func(ctx context.Context) ([]OrderView, error)
}

func (s *stubOrderService) ListOrders(ctx context.Context) ([]OrderView, error) {
	return s.listOrders(ctx)
}

func (s *stubOrderService) GetOrder(context.Context, string) (*OrderView, error) {
	return nil, errors.New("not implemented")
}

func orderViewAt(id string, total int64, class domain.StatusClass, created time.Time) OrderView {
	return OrderView{
		Order: domain.Order{
			ID:        id,
			Currency:  "GBP",
			Total:     total,
			CreatedAt: created,
		},
		StatusClass: class,
	}
}

func TestDashboardSnapshotAggregates(t *testing.T) {
	base := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	svc, err := NewDashboardService(DashboardServiceDeps{
		Catalog: &stubCatalogService{
			listProducts: func(context.Context) ([]domain.Product, error) {
				return []domain.Product{
					{ID: "prod_1", Inventory: 12},
					{ID: "prod_2", Inventory: 3},
				}, nil
			},
		},
		Orders: &stubOrderService{
			listOrders: func(context.Context) ([]OrderView, error) {
				views := make([]OrderView, 0, 7)
				for i := 0; i < 7; i++ {
					class := domain.StatusClassSuccess
					if i%3 == 0 {
						class = domain.StatusClassPending
					}
					views = append(views, orderViewAt(
						"order_"+string(rune('a'+i)),
						1000*int64(i+1),
						class,
						base.Add(time.Duration(i)*time.Hour),
					))
				}
				return views, nil
			},
		},
		Clock: func() time.Time { return base.Add(24 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("NewDashboardService() error = %v", err)
	}

	snapshot, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snapshot.TotalInventory != 15 {
		t.Fatalf("Snapshot() total inventory = %d, want 15", snapshot.TotalInventory)
	}
	if snapshot.TotalOrders != 7 {
		t.Fatalf("Snapshot() total orders = %d, want 7", snapshot.TotalOrders)
	}
	if want := int64(1000 + 2000 + 3000 + 4000 + 5000 + 6000 + 7000); snapshot.TotalSales != want {
		t.Fatalf("Snapshot() total sales = %d, want %d", snapshot.TotalSales, want)
	}
	if snapshot.Currency != "GBP" {
		t.Fatalf("Snapshot() currency = %q, want GBP", snapshot.Currency)
	}
	if len(snapshot.RecentOrders) != recentOrderLimit {
		t.Fatalf("Snapshot() recent orders = %d, want %d", len(snapshot.RecentOrders), recentOrderLimit)
	}
	if snapshot.RecentOrders[0].ID != "order_g" {
		t.Fatalf("Snapshot() newest recent order = %q, want order_g", snapshot.RecentOrders[0].ID)
	}
	if snapshot.StatusCounts[domain.StatusClassPending] != 3 {
		t.Fatalf("Snapshot() pending count = %d, want 3", snapshot.StatusCounts[domain.StatusClassPending])
	}
	if snapshot.StatusCounts[domain.StatusClassSuccess] != 4 {
		t.Fatalf("Snapshot() success count = %d, want 4", snapshot.StatusCounts[domain.StatusClassSuccess])
	}
}

func TestDashboardSnapshotDegradesToZero(t *testing.T) {
	svc, err := NewDashboardService(DashboardServiceDeps{
		Catalog: &stubCatalogService{
			listProducts: func(context.Context) ([]domain.Product, error) {
				return nil, errors.New("catalog down")
			},
		},
		Orders: &stubOrderService{
			listOrders: func(context.Context) ([]OrderView, error) {
				return nil, errors.New("orders down")
			},
		},
	})
	if err != nil {
		t.Fatalf("NewDashboardService() error = %v", err)
	}

	snapshot, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v, want a zero snapshot instead", err)
	}
	if snapshot.TotalInventory != 0 || snapshot.TotalOrders != 0 || snapshot.TotalSales != 0 {
		t.Fatalf("Snapshot() = %+v, want zero figures", snapshot)
	}
	if len(snapshot.RecentOrders) != 0 {
		t.Fatalf("Snapshot() recent orders = %d, want 0", len(snapshot.RecentOrders))
	}
}
