package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gohaste/storefront/internal/platform/httpx"
	"github.com/gohaste/storefront/internal/services"
)

const maxContactBodySize = 32 * 1024

// ContactHandlers exposes the contact form endpoint.
type ContactHandlers struct {
	contact services.ContactService
	limiter RateLimiter
}

// NewContactHandlers constructs handlers backed by the contact service. The
// limiter, when non-nil, throttles submissions per session.
func NewContactHandlers(contact services.ContactService, limiter RateLimiter) *ContactHandlers {
	return &ContactHandlers{contact: contact, limiter: limiter}
}

// Routes wires the /contact endpoint onto the provided router.
func (h *ContactHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.limiter != nil {
		r.Use(rateLimitMiddleware(h.limiter))
	}
	r.Post("/", h.submit)
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type contactResponse struct {
	ID         string `json:"id"`
	ReceivedAt string `json:"received_at"`
}

func (h *ContactHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.contact == nil {
		httpx.WriteError(ctx, w, httpx.NewError("contact_unavailable", "contact service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req contactRequest
	if err := decodeJSONBody(r, maxContactBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	message, err := h.contact.Submit(ctx, services.ContactCommand{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Body:    req.Message,
	})
	if err != nil {
		h.writeContactError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, contactResponse{
		ID:         message.ID,
		ReceivedAt: formatTime(message.ReceivedAt),
	})
}

func (h *ContactHandlers) writeContactError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrContactInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrContactUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("contact_unavailable", "message could not be stored", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("contact_error", "failed to submit message", http.StatusInternalServerError))
	}
}
