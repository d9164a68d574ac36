package auth

import (
	"context"
	"strings"
)

type contextKey string

const sessionContextKey contextKey = "github.com/gohaste/storefront/internal/platform/auth/session"

// Session identifies the shopper owning the current request. Anonymous
// visitors get a minted session; bearer-token holders are tied to their
// account subject so the cart follows them across devices.
type Session struct {
	ID            string
	Email         string
	Authenticated bool
}

// WithSession stores the session on the context for downstream consumers.
func WithSession(ctx context.Context, session *Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext retrieves the session from context when present.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	session, ok := ctx.Value(sessionContextKey).(*Session)
	if !ok || session == nil {
		return nil, false
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, false
	}
	return session, true
}
