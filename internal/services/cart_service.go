package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gohaste/storefront/internal/domain"
	"github.com/gohaste/storefront/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartPricingRequired    = errors.New("cart service: pricing engine is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartNotFound indicates the requested cart does not exist.
var ErrCartNotFound = errors.New("cart service: not found")

// ErrCartUnavailable indicates the cart service cannot fulfil the request.
var ErrCartUnavailable = errors.New("cart service: unavailable")

const maxLineQuantity = 999

// AddItemCommand describes a product being added to the cart.
type AddItemCommand struct {
	ProductID string
	VariantID string
	SKU       string
	Title     string
	UnitPrice int64
	Currency  string
	Quantity  int
	ImageURL  string
}

// CartServiceDeps wires the repository and pricing dependencies for cart operations.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Pricing     *PricingEngine
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type cartService struct {
	repo    repositories.CartRepository
	pricing *PricingEngine
	newID   func() string
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Pricing == nil {
		return nil, errCartPricingRequired
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		repo:    deps.Repository,
		pricing: deps.Pricing,
		newID:   idGen,
		now:     func() time.Time { return clock().UTC() },
		logger:  logger,
	}, nil
}

// GetCart loads the session's cart, creating an empty one when absent. The
// estimate is always freshly computed, never read back from storage.
func (s *cartService) GetCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Cart{}, fmt.Errorf("%w: session id is required", ErrCartInvalidInput)
	}

	cart, err := s.repo.FindBySession(ctx, sessionID)
	if err != nil {
		if !isRepoNotFound(err) {
			return domain.Cart{}, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
		}
		cart = s.newCart(sessionID)
		if err := s.repo.Save(ctx, cart); err != nil {
			return domain.Cart{}, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
		}
	}

	return s.withEstimate(ctx, cart)
}

// AddItem adds a product to the cart, merging quantities when the product is
// already present.
func (s *cartService) AddItem(ctx context.Context, sessionID string, cmd AddItemCommand) (domain.Cart, error) {
	if err := validateAddItem(cmd); err != nil {
		return domain.Cart{}, err
	}
	if currency := strings.ToUpper(strings.TrimSpace(cmd.Currency)); currency != "" && currency != s.pricing.Currency() {
		return domain.Cart{}, fmt.Errorf("%w: item priced in %s, cart uses %s", ErrCartInvalidInput, currency, s.pricing.Currency())
	}

	cart, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}

	now := s.now()
	merged := false
	items := make([]domain.LineItem, len(cart.Items))
	copy(items, cart.Items)
	for idx, item := range items {
		if item.ProductID == cmd.ProductID && item.VariantID == cmd.VariantID {
			quantity := item.Quantity + cmd.Quantity
			if quantity > maxLineQuantity {
				return domain.Cart{}, fmt.Errorf("%w: quantity for %s exceeds %d", ErrCartInvalidInput, cmd.ProductID, maxLineQuantity)
			}
			items[idx].Quantity = quantity
			items[idx].UpdatedAt = &now
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, domain.LineItem{
			ID:        s.newID(),
			ProductID: cmd.ProductID,
			VariantID: cmd.VariantID,
			SKU:       strings.TrimSpace(cmd.SKU),
			Title:     strings.TrimSpace(cmd.Title),
			Quantity:  cmd.Quantity,
			UnitPrice: cmd.UnitPrice,
			Currency:  s.pricing.Currency(),
			ImageURL:  strings.TrimSpace(cmd.ImageURL),
			AddedAt:   now,
		})
	}

	cart.Items = items
	return s.persist(ctx, cart)
}

// SetItemQuantity replaces a line's quantity; zero or less removes the line.
func (s *cartService) SetItemQuantity(ctx context.Context, sessionID, productID string, quantity int) (domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if quantity > maxLineQuantity {
		return domain.Cart{}, fmt.Errorf("%w: quantity exceeds %d", ErrCartInvalidInput, maxLineQuantity)
	}

	cart, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}

	cart.Items = s.pricing.SetQuantity(ctx, cart.Items, productID, quantity)
	return s.persist(ctx, cart)
}

// RemoveItem deletes a product's line from the cart.
func (s *cartService) RemoveItem(ctx context.Context, sessionID, productID string) (domain.Cart, error) {
	return s.SetItemQuantity(ctx, sessionID, productID, 0)
}

// ClearCart empties the session's cart.
func (s *cartService) ClearCart(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrCartInvalidInput)
	}
	if err := s.repo.DeleteBySession(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
	return nil
}

func (s *cartService) loadOrCreate(ctx context.Context, sessionID string) (domain.Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Cart{}, fmt.Errorf("%w: session id is required", ErrCartInvalidInput)
	}

	cart, err := s.repo.FindBySession(ctx, sessionID)
	if err != nil {
		if !isRepoNotFound(err) {
			return domain.Cart{}, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
		}
		cart = s.newCart(sessionID)
	}
	return cart, nil
}

func (s *cartService) persist(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	cart.UpdatedAt = s.now()

	priced, err := s.withEstimate(ctx, cart)
	if err != nil {
		return domain.Cart{}, err
	}

	if err := s.repo.Save(ctx, priced); err != nil {
		return domain.Cart{}, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
	return priced, nil
}

func (s *cartService) withEstimate(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	breakdown, err := s.pricing.ComputeBreakdown(ctx, cart.Items)
	if err != nil {
		s.logger(ctx, "cart.pricing_failed", map[string]any{"sessionId": cart.SessionID, "error": err.Error()})
		return domain.Cart{}, fmt.Errorf("%w: %v", ErrCartInvalidInput, err)
	}
	cart.Estimate = &breakdown
	cart.Currency = breakdown.Currency
	return cart, nil
}

func (s *cartService) newCart(sessionID string) domain.Cart {
	now := s.now()
	return domain.Cart{
		ID:        s.newID(),
		SessionID: sessionID,
		Currency:  s.pricing.Currency(),
		Items:     []domain.LineItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func validateAddItem(cmd AddItemCommand) error {
	if strings.TrimSpace(cmd.ProductID) == "" {
		return fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if cmd.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrCartInvalidInput)
	}
	if cmd.Quantity > maxLineQuantity {
		return fmt.Errorf("%w: quantity exceeds %d", ErrCartInvalidInput, maxLineQuantity)
	}
	if cmd.UnitPrice < 0 {
		return fmt.Errorf("%w: unit price cannot be negative", ErrCartInvalidInput)
	}
	return nil
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}
