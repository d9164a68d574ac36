// Package memory provides in-process implementations of the repository
// interfaces. Cart state is deliberately ephemeral.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/gohaste/storefront/internal/domain"
)

// CartRepository keeps one cart per session behind a mutex.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
}

// NewCartRepository constructs an empty cart repository.
func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]domain.Cart)}
}

// FindBySession returns the cart stored for the session. The returned cart is
// a deep copy so callers can mutate it before saving.
func (r *CartRepository) FindBySession(_ context.Context, sessionID string) (domain.Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Cart{}, invalidError("cart repository: session id is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[sessionID]
	if !ok {
		return domain.Cart{}, notFoundError("cart repository: no cart for session %s", sessionID)
	}
	return cloneCart(cart), nil
}

// Save stores a deep copy of the cart keyed by its session.
func (r *CartRepository) Save(_ context.Context, cart domain.Cart) error {
	sessionID := strings.TrimSpace(cart.SessionID)
	if sessionID == "" {
		return invalidError("cart repository: cart has no session id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[sessionID] = cloneCart(cart)
	return nil
}

// DeleteBySession removes the session's cart. Deleting an absent cart is a no-op.
func (r *CartRepository) DeleteBySession(_ context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return invalidError("cart repository: session id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, sessionID)
	return nil
}

func cloneCart(cart domain.Cart) domain.Cart {
	cloned := cart
	if cart.Items != nil {
		cloned.Items = make([]domain.LineItem, len(cart.Items))
		copy(cloned.Items, cart.Items)
	}
	if cart.Estimate != nil {
		estimate := *cart.Estimate
		if cart.Estimate.Discounts != nil {
			estimate.Discounts = make([]domain.DiscountBreakdown, len(cart.Estimate.Discounts))
			copy(estimate.Discounts, cart.Estimate.Discounts)
		}
		cloned.Estimate = &estimate
	}
	return cloned
}
