package memory

import (
	"context"
	"sync"

	"github.com/gohaste/storefront/internal/domain"
)

// ContactRepository keeps received contact messages in a bounded ring.
type ContactRepository struct {
	mu       sync.Mutex
	messages []domain.ContactMessage
	capacity int
}

const defaultContactCapacity = 500

// NewContactRepository constructs a contact repository retaining at most
// capacity messages; zero or negative uses the default.
func NewContactRepository(capacity int) *ContactRepository {
	if capacity <= 0 {
		capacity = defaultContactCapacity
	}
	return &ContactRepository{capacity: capacity}
}

// Insert records a message, evicting the oldest when at capacity.
func (r *ContactRepository) Insert(_ context.Context, message domain.ContactMessage) error {
	if message.ID == "" {
		return invalidError("contact repository: message id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, message)
	if len(r.messages) > r.capacity {
		r.messages = r.messages[len(r.messages)-r.capacity:]
	}
	return nil
}

// List returns the most recent messages, newest first.
func (r *ContactRepository) List(_ context.Context, limit int) ([]domain.ContactMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > len(r.messages) {
		limit = len(r.messages)
	}

	out := make([]domain.ContactMessage, 0, limit)
	for i := len(r.messages) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.messages[i])
	}
	return out, nil
}
