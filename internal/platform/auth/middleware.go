package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	sessionHeaderName = "X-Session-ID"
	bearerPrefix      = "Bearer "
	maxSessionIDLen   = 64
)

var errTokenSubjectMissing = errors.New("auth: token subject missing")

// Sessioner resolves the shopper session for incoming requests.
type Sessioner struct {
	secret []byte
	logger *zap.Logger
	newID  func() string
}

// SessionOption customises Sessioner construction.
type SessionOption func(*Sessioner)

// WithJWTSecret enables HS256 bearer-token verification using the given secret.
func WithJWTSecret(secret string) SessionOption {
	return func(s *Sessioner) {
		trimmed := strings.TrimSpace(secret)
		if trimmed != "" {
			s.secret = []byte(trimmed)
		}
	}
}

// WithSessionLogger injects the logger used for token rejection warnings.
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Sessioner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator overrides the anonymous session ID source, primarily for testing.
func WithIDGenerator(gen func() string) SessionOption {
	return func(s *Sessioner) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewSessioner constructs a Sessioner with the supplied options.
func NewSessioner(opts ...SessionOption) *Sessioner {
	s := &Sessioner{
		logger: zap.NewNop(),
		newID:  func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Middleware attaches a Session to every request. An HS256 bearer token wins
// when a secret is configured; otherwise the X-Session-ID header is honoured;
// anonymous visitors get a fresh ULID echoed back in the response header.
func (s *Sessioner) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := s.resolve(r)
			if session == nil {
				session = &Session{ID: s.newID()}
				w.Header().Set(sessionHeaderName, session.ID)
			}
			ctx := WithSession(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Sessioner) resolve(r *http.Request) *Session {
	if r == nil {
		return nil
	}

	if len(s.secret) > 0 {
		if token := bearerToken(r); token != "" {
			session, err := s.verifyToken(token)
			if err != nil {
				s.logger.Warn("bearer token rejected", zap.Error(err))
			} else if session != nil {
				return session
			}
		}
	}

	if id := sanitizeSessionID(r.Header.Get(sessionHeaderName)); id != "" {
		return &Session{ID: id}
	}
	return nil
}

func (s *Sessioner) verifyToken(token string) (*Session, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenNotValidYet
	}

	subject := sanitizeSessionID(claims.Subject)
	if subject == "" {
		return nil, errTokenSubjectMissing
	}

	return &Session{ID: subject, Authenticated: true}, nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	cleaned := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == ':':
			cleaned = append(cleaned, r)
		}
	}
	if len(cleaned) == 0 || len(cleaned) > maxSessionIDLen {
		return ""
	}
	return string(cleaned)
}
