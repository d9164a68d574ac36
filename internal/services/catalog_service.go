package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/gohaste/storefront/internal/domain"
)

// ErrCatalogInvalidInput indicates the caller supplied invalid input.
var ErrCatalogInvalidInput = errors.New("catalog service: invalid input")

// ErrCatalogNotFound indicates the product does not exist or could not be read.
var ErrCatalogNotFound = errors.New("catalog service: product not found")

var errCatalogClientRequired = errors.New("catalog service: commerce client is required")

// CatalogClient is the slice of the commerce backend the catalog reads from.
type CatalogClient interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// CatalogServiceDeps wires the commerce client for catalog reads.
type CatalogServiceDeps struct {
	Client CatalogClient
	Logger func(context.Context, string, map[string]any)
}

type catalogService struct {
	client CatalogClient
	group  singleflight.Group
	logger func(context.Context, string, map[string]any)
}

// NewCatalogService constructs a CatalogService. Concurrent fetches of the
// same resource are collapsed into a single upstream request.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Client == nil {
		return nil, errCatalogClientRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{client: deps.Client, logger: logger}, nil
}

// ListProducts returns the catalog. Backend failures are logged and degrade
// to an empty list, never an error.
func (s *catalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	result, err, _ := s.group.Do("products", func() (any, error) {
		return s.client.ListProducts(ctx)
	})
	if err != nil {
		s.logger(ctx, "catalog.list_degraded", map[string]any{"error": err.Error()})
		return []domain.Product{}, nil
	}

	products, ok := result.([]domain.Product)
	if !ok || products == nil {
		return []domain.Product{}, nil
	}
	return products, nil
}

// GetProduct returns a single product. Any backend failure degrades to
// not-found after logging, mirroring the listing policy.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	result, err, _ := s.group.Do("product:"+productID, func() (any, error) {
		return s.client.GetProduct(ctx, productID)
	})
	if err != nil {
		s.logger(ctx, "catalog.get_degraded", map[string]any{"productId": productID, "error": err.Error()})
		return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, productID)
	}

	product, ok := result.(*domain.Product)
	if !ok || product == nil {
		return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, productID)
	}
	return product, nil
}
