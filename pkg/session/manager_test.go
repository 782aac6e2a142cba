package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type failingStore struct {
	TokenStore
	err error
}

func (s failingStore) Load(ctx context.Context) (string, error) {
	return "", s.err
}

func (s failingStore) Save(ctx context.Context, token string) error {
	return s.err
}

func TestManagerLoginLifecycle(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "", nil)

	if m.State() != StateAnonymous {
		t.Fatalf("expected ANONYMOUS, got %s", m.State())
	}

	m.BeginLogin()
	if m.State() != StateAuthenticating {
		t.Fatalf("expected AUTHENTICATING, got %s", m.State())
	}

	m.FailLogin(ctx)
	if m.State() != StateAnonymous {
		t.Fatalf("expected failed login to return to ANONYMOUS, got %s", m.State())
	}

	m.BeginLogin()
	if err := m.CompleteLogin(ctx, "tok1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("expected AUTHENTICATED, got %s", m.State())
	}
	if token, _ := m.Token(ctx); token != "tok1" {
		t.Fatalf("expected tok1 to be persisted, got %q", token)
	}

	if err := m.Reset(ctx); err != nil {
		t.Fatalf("unexpected reset error: %v", err)
	}
	if err := m.Reset(ctx); err != nil {
		t.Fatalf("expected reset to be idempotent, got %v", err)
	}
	if token, _ := m.Token(ctx); token != "" {
		t.Fatalf("expected token to be cleared, got %q", token)
	}
	if m.State() != StateAnonymous {
		t.Fatalf("expected ANONYMOUS after reset, got %s", m.State())
	}
}

func TestManagerFailedLoginKeepsExistingSession(t *testing.T) {
	m := newTestManager(t, "tok1", nil)
	m.BeginLogin()
	m.FailLogin(context.Background())

	if m.State() != StateAuthenticated {
		t.Fatalf("expected existing session to survive, got %s", m.State())
	}
}

func TestManagerCompleteLoginRejectsEmptyToken(t *testing.T) {
	m := newTestManager(t, "", nil)
	m.BeginLogin()

	if err := m.CompleteLogin(context.Background(), ""); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
	if m.State() != StateAnonymous {
		t.Fatalf("expected ANONYMOUS, got %s", m.State())
	}
}

func TestAttachTokenFallsBackToDefaultHeader(t *testing.T) {
	m := newTestManager(t, "tok1", nil)
	m.store = failingStore{err: errors.New("disk unavailable")}

	req := mustRequest(t)
	if used := m.AttachToken(req); used != "tok1" {
		t.Fatalf("expected default token tok1, got %q", used)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer tok1" {
		t.Fatalf("expected default header, got %q", got)
	}
}

func TestManagerClaims(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second).UTC()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	m := newTestManager(t, signed, nil)
	claims, err := m.Claims(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("expected subject user-42, got %q", claims.Subject)
	}
	if !claims.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("expected expiry %s, got %s", expiresAt, claims.ExpiresAt)
	}
}

func TestManagerClaimsOpaqueAndMissingTokens(t *testing.T) {
	opaque := newTestManager(t, "not-a-jwt", nil)
	claims, err := opaque.Claims(context.Background())
	if err != nil {
		t.Fatalf("unexpected error for opaque token: %v", err)
	}
	if claims.Subject != "" || !claims.ExpiresAt.IsZero() {
		t.Fatalf("expected empty claims, got %+v", claims)
	}

	anonymous := newTestManager(t, "", nil)
	if _, err := anonymous.Claims(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}
