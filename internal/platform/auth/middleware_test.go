package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "unit-test-secret"

func signedToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func resolveSession(t *testing.T, s *Sessioner, req *http.Request) (*Session, *httptest.ResponseRecorder) {
	t.Helper()
	var captured *Session
	handler := s.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			t.Fatal("expected a session on the request context")
		}
		captured = session
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if captured == nil {
		t.Fatal("handler was not invoked")
	}
	return captured, rr
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	sessioner := NewSessioner(WithJWTSecret(testSecret))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, testSecret, "acct_42"))

	session, _ := resolveSession(t, sessioner, req)
	if session.ID != "acct_42" {
		t.Fatalf("expected session bound to token subject, got %q", session.ID)
	}
	if !session.Authenticated {
		t.Fatal("expected an authenticated session")
	}
}

func TestMiddlewareRejectsBadSignature(t *testing.T) {
	sessioner := NewSessioner(
		WithJWTSecret(testSecret),
		WithIDGenerator(func() string { return "anon_1" }),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "wrong-secret", "acct_42"))

	session, rr := resolveSession(t, sessioner, req)
	if session.Authenticated {
		t.Fatal("a forged token must not authenticate")
	}
	if session.ID != "anon_1" {
		t.Fatalf("expected an anonymous fallback session, got %q", session.ID)
	}
	if rr.Header().Get("X-Session-ID") != "anon_1" {
		t.Fatal("expected the minted session ID to be echoed back")
	}
}

func TestMiddlewareRejectsTokenWithoutSubject(t *testing.T) {
	sessioner := NewSessioner(
		WithJWTSecret(testSecret),
		WithIDGenerator(func() string { return "anon_1" }),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, testSecret, ""))

	session, _ := resolveSession(t, sessioner, req)
	if session.Authenticated || session.ID != "anon_1" {
		t.Fatalf("expected anonymous fallback for a subjectless token, got %+v", session)
	}
}

func TestVerifyTokenSubjectMissing(t *testing.T) {
	sessioner := NewSessioner(WithJWTSecret(testSecret))

	_, err := sessioner.verifyToken(signedToken(t, testSecret, ""))
	if !errors.Is(err, errTokenSubjectMissing) {
		t.Fatalf("expected errTokenSubjectMissing, got %v", err)
	}
}

func TestMiddlewareHonoursSessionHeader(t *testing.T) {
	sessioner := NewSessioner()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Session-ID", "sess_abc123")

	session, rr := resolveSession(t, sessioner, req)
	if session.ID != "sess_abc123" {
		t.Fatalf("expected header session to be honoured, got %q", session.ID)
	}
	if session.Authenticated {
		t.Fatal("header sessions are not authenticated")
	}
	if rr.Header().Get("X-Session-ID") != "" {
		t.Fatal("no new session should be minted when the header is present")
	}
}

func TestMiddlewareMintsAnonymousSession(t *testing.T) {
	sessioner := NewSessioner()

	session, rr := resolveSession(t, sessioner, httptest.NewRequest(http.MethodGet, "/", nil))
	if session.ID == "" {
		t.Fatal("expected a minted session ID")
	}
	if rr.Header().Get("X-Session-ID") != session.ID {
		t.Fatalf("expected minted ID %q echoed in the response header, got %q", session.ID, rr.Header().Get("X-Session-ID"))
	}
}

func TestMiddlewareSanitisesSessionHeader(t *testing.T) {
	sessioner := NewSessioner(WithIDGenerator(func() string { return "anon_1" }))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Session-ID", "  sess<script>_9  ")

	session, _ := resolveSession(t, sessioner, req)
	if session.ID != "sessscript_9" {
		t.Fatalf("expected sanitised header ID, got %q", session.ID)
	}
}
