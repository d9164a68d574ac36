package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gohaste/storefront/internal/domain"
	"github.com/gohaste/storefront/internal/platform/money"
)

// ErrOrderInvalidInput indicates the caller supplied invalid input.
var ErrOrderInvalidInput = errors.New("order service: invalid input")

// ErrOrderNotFound indicates the order does not exist or could not be read.
var ErrOrderNotFound = errors.New("order service: order not found")

var errOrderClientRequired = errors.New("order service: commerce client is required")

const defaultDisplayLocale = "en-GB"

// OrderClient is the slice of the commerce backend the order history reads from.
type OrderClient interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
}

// OrderView decorates an order with its presentation fields.
type OrderView struct {
	domain.Order
	StatusClass  domain.StatusClass
	DisplayTotal string
}

// OrderServiceDeps wires the commerce client for order reads.
type OrderServiceDeps struct {
	Client OrderClient
	Locale string
	Logger func(context.Context, string, map[string]any)
}

type orderService struct {
	client OrderClient
	locale string
	logger func(context.Context, string, map[string]any)
}

// NewOrderService constructs an OrderService.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Client == nil {
		return nil, errOrderClientRequired
	}
	locale := strings.TrimSpace(deps.Locale)
	if locale == "" {
		locale = defaultDisplayLocale
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &orderService{client: deps.Client, locale: locale, logger: logger}, nil
}

// ListOrders returns the order history. Backend failures are logged and
// degrade to an empty list.
func (s *orderService) ListOrders(ctx context.Context) ([]OrderView, error) {
	orders, err := s.client.ListOrders(ctx)
	if err != nil {
		s.logger(ctx, "orders.list_degraded", map[string]any{"error": err.Error()})
		return []OrderView{}, nil
	}

	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, s.toView(order))
	}
	return views, nil
}

// GetOrder returns a single order; failures degrade to not-found.
func (s *orderService) GetOrder(ctx context.Context, orderID string) (*OrderView, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.client.GetOrder(ctx, orderID)
	if err != nil || order == nil {
		if err != nil {
			s.logger(ctx, "orders.get_degraded", map[string]any{"orderId": orderID, "error": err.Error()})
		}
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	view := s.toView(*order)
	return &view, nil
}

func (s *orderService) toView(order domain.Order) OrderView {
	display, err := money.Format(order.Total, order.Currency, s.locale)
	if err != nil {
		display = ""
	}
	return OrderView{
		Order:        order,
		StatusClass:  domain.ClassifyStatus(string(order.Status)),
		DisplayTotal: display,
	}
}
