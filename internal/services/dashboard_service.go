package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/gohaste/storefront/internal/domain"
)

const recentOrderLimit = 5

var (
	errDashboardCatalogRequired = errors.New("dashboard service: catalog service is required")
	errDashboardOrdersRequired  = errors.New("dashboard service: order service is required")
)

// DashboardServiceDeps wires the dashboard collaborators.
type DashboardServiceDeps struct {
	Catalog         CatalogService
	Orders          OrderService
	DefaultCurrency string
	Clock           func() time.Time
	Logger          func(context.Context, string, map[string]any)
}

type dashboardService struct {
	catalog  CatalogService
	orders   OrderService
	currency string
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(deps DashboardServiceDeps) (DashboardService, error) {
	if deps.Catalog == nil {
		return nil, errDashboardCatalogRequired
	}
	if deps.Orders == nil {
		return nil, errDashboardOrdersRequired
	}
	currency := deps.DefaultCurrency
	if currency == "" {
		currency = "GBP"
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &dashboardService{
		catalog:  deps.Catalog,
		orders:   deps.Orders,
		currency: currency,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

// Snapshot rolls catalog inventory and order history into dashboard figures.
// Both upstreams degrade to empty results on failure, so a snapshot is always
// produced; partial data beats a blank dashboard.
func (s *dashboardService) Snapshot(ctx context.Context) (domain.KPISnapshot, error) {
	snapshot := domain.KPISnapshot{
		Currency:     s.currency,
		StatusCounts: map[domain.StatusClass]int{},
		GeneratedAt:  s.now(),
	}

	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		s.logger(ctx, "dashboard.catalog_degraded", map[string]any{"error": err.Error()})
	}
	for _, product := range products {
		snapshot.TotalInventory += product.Inventory
	}

	views, err := s.orders.ListOrders(ctx)
	if err != nil {
		s.logger(ctx, "dashboard.orders_degraded", map[string]any{"error": err.Error()})
	}

	orders := make([]domain.Order, 0, len(views))
	currencySet := false
	for _, view := range views {
		orders = append(orders, view.Order)
		snapshot.TotalSales += view.Order.Total
		snapshot.StatusCounts[view.StatusClass]++
		if !currencySet && view.Order.Currency != "" {
			snapshot.Currency = view.Order.Currency
			currencySet = true
		}
	}
	snapshot.TotalOrders = len(orders)

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	if len(orders) > recentOrderLimit {
		orders = orders[:recentOrderLimit]
	}
	snapshot.RecentOrders = orders

	return snapshot, nil
}
