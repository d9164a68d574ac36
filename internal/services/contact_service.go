package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/gohaste/storefront/internal/domain"
	"github.com/gohaste/storefront/internal/repositories"
)

const (
	maxContactNameLength    = 200
	maxContactSubjectLength = 200
	maxContactBodyLength    = 4000
)

// ErrContactInvalidInput indicates the contact payload is unusable.
var ErrContactInvalidInput = errors.New("contact service: invalid input")

// ErrContactUnavailable indicates the message could not be stored.
var ErrContactUnavailable = errors.New("contact service: unavailable")

var errContactRepoRequired = errors.New("contact service: contact repository is required")

// ContactCommand is the shopper-supplied contact form payload.
type ContactCommand struct {
	Name    string
	Email   string
	Subject string
	Body    string
}

// ContactServiceDeps wires the contact form collaborators.
type ContactServiceDeps struct {
	Repo       repositories.ContactRepository
	Clock      func() time.Time
	IDProvider func() string
	Logger     func(context.Context, string, map[string]any)
}

type contactService struct {
	repo     repositories.ContactRepository
	now      func() time.Time
	id       func() string
	sanitize *bluemonday.Policy
	logger   func(context.Context, string, map[string]any)
}

// NewContactService constructs a ContactService.
func NewContactService(deps ContactServiceDeps) (ContactService, error) {
	if deps.Repo == nil {
		return nil, errContactRepoRequired
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idProvider := deps.IDProvider
	if idProvider == nil {
		entropy := ulid.Monotonic(rand.New(rand.NewSource(clock().UnixNano())), 0)
		idProvider = func() string {
			return "msg_" + ulid.MustNew(ulid.Timestamp(clock().UTC()), entropy).String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &contactService{
		repo:     deps.Repo,
		now:      func() time.Time { return clock().UTC() },
		id:       idProvider,
		sanitize: bluemonday.StrictPolicy(),
		logger:   logger,
	}, nil
}

// Submit validates and stores a contact message. Free-text fields are
// stripped of markup before persistence.
func (s *contactService) Submit(ctx context.Context, cmd ContactCommand) (domain.ContactMessage, error) {
	msg := domain.ContactMessage{
		ID:         s.id(),
		Name:       s.cleanField(cmd.Name, maxContactNameLength),
		Email:      strings.TrimSpace(cmd.Email),
		Subject:    s.cleanField(cmd.Subject, maxContactSubjectLength),
		Body:       s.cleanField(cmd.Body, maxContactBodyLength),
		ReceivedAt: s.now(),
	}

	if msg.Name == "" {
		return domain.ContactMessage{}, fmt.Errorf("%w: name is required", ErrContactInvalidInput)
	}
	if msg.Email == "" || !strings.Contains(msg.Email, "@") {
		return domain.ContactMessage{}, fmt.Errorf("%w: a valid email is required", ErrContactInvalidInput)
	}
	if msg.Body == "" {
		return domain.ContactMessage{}, fmt.Errorf("%w: message body is required", ErrContactInvalidInput)
	}

	if err := s.repo.Insert(ctx, msg); err != nil {
		s.logger(ctx, "contact.store_failed", map[string]any{"messageId": msg.ID, "error": err.Error()})
		return domain.ContactMessage{}, fmt.Errorf("%w: %v", ErrContactUnavailable, err)
	}

	s.logger(ctx, "contact.received", map[string]any{"messageId": msg.ID})
	return msg, nil
}

func (s *contactService) cleanField(value string, limit int) string {
	cleaned := strings.TrimSpace(s.sanitize.Sanitize(value))
	if len(cleaned) > limit {
		cleaned = cleaned[:limit]
	}
	return cleaned
}
