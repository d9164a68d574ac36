package services

import (
	"context"

	"github.com/gohaste/storefront/internal/domain"
)

// CartService owns the session-scoped shopping cart state.
type CartService interface {
	GetCart(ctx context.Context, sessionID string) (domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, cmd AddItemCommand) (domain.Cart, error)
	SetItemQuantity(ctx context.Context, sessionID, productID string, quantity int) (domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID, productID string) (domain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) error
}

// CatalogService reads products from the commerce backend, degrading to
// empty results when the backend misbehaves.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

// OrderService reads order history from the commerce backend.
type OrderService interface {
	ListOrders(ctx context.Context) ([]OrderView, error)
	GetOrder(ctx context.Context, orderID string) (*OrderView, error)
}

// CheckoutService turns a priced cart into a submitted order.
type CheckoutService interface {
	Checkout(ctx context.Context, sessionID string, cmd CheckoutCommand) (CheckoutResult, error)
}

// DashboardService aggregates merchant KPI figures.
type DashboardService interface {
	Snapshot(ctx context.Context) (domain.KPISnapshot, error)
}

// ContactService accepts and records contact messages.
type ContactService interface {
	Submit(ctx context.Context, cmd ContactCommand) (domain.ContactMessage, error)
}
