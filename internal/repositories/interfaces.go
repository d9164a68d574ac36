package repositories

import (
	"context"

	"github.com/gohaste/storefront/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository persists per-session shopping carts. Carts are UI state: they
// live in memory and disappear with the process, matching the storefront's
// cleared-on-reload behaviour.
type CartRepository interface {
	FindBySession(ctx context.Context, sessionID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) error
	DeleteBySession(ctx context.Context, sessionID string) error
}

// ContactRepository records sanitised contact messages.
type ContactRepository interface {
	Insert(ctx context.Context, message domain.ContactMessage) error
	List(ctx context.Context, limit int) ([]domain.ContactMessage, error)
}
