/**
 * @description
 * The session manager owns the bearer-token lifecycle for the wallet gateway:
 * where the token lives, which state the session is in, and how a silent
 * refresh rotates it.
 *
 * @notes
 * - Concurrent refreshes are collapsed into one backend call.
 * - A refresh failure is terminal: the token is purged and the session goes
 *   back to ANONYMOUS until the next login.
 */

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNoRefresher = errors.New("session refresher is not configured")
	ErrEmptyToken  = errors.New("refresh returned an empty access token")
	ErrNoSession   = errors.New("no active session")
)

// Refresher mints a new access token from the refresh credential.
type Refresher interface {
	RefreshToken(ctx context.Context) (string, error)
}

// Claims are the unverified access-token claims exposed for status reporting.
type Claims struct {
	Subject   string    `json:"subject,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Manager holds the token store, the session state and the default header.
type Manager struct {
	store     TokenStore
	logger    *slog.Logger
	refresher Refresher

	mu           sync.RWMutex
	state        State
	defaultToken string
	expiredHooks []func(context.Context)

	group singleflight.Group
}

func NewManager(store TokenStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		logger: logger.With("component", "session"),
		state:  StateAnonymous,
	}
}

// SetRefresher wires the refresh endpoint. The API client that implements it
// is usually built on top of this manager's transport, hence the setter.
func (m *Manager) SetRefresher(r Refresher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresher = r
}

// OnExpired registers a hook fired after a terminal refresh failure.
func (m *Manager) OnExpired(fn func(context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiredHooks = append(m.expiredHooks, fn)
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) setState(state State) {
	m.mu.Lock()
	previous := m.state
	m.state = state
	m.mu.Unlock()

	if previous != state {
		m.logger.Debug("session state changed", "from", previous, "to", state)
	}
}

// Token returns the stored access token, or "" when none is stored.
func (m *Manager) Token(ctx context.Context) (string, error) {
	return m.store.Load(ctx)
}

// DefaultToken is the token attached when the store cannot be read.
func (m *Manager) DefaultToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultToken
}

func (m *Manager) setDefaultToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultToken = token
}

// BeginLogin moves the session to AUTHENTICATING.
func (m *Manager) BeginLogin() {
	m.setState(StateAuthenticating)
}

// CompleteLogin persists a freshly issued token and makes it the default.
func (m *Manager) CompleteLogin(ctx context.Context, token string) error {
	if token == "" {
		m.FailLogin(ctx)
		return ErrEmptyToken
	}
	if err := m.store.Save(ctx, token); err != nil {
		m.FailLogin(ctx)
		return fmt.Errorf("failed to persist access token: %w", err)
	}
	m.setDefaultToken(token)
	m.setState(StateAuthenticated)
	m.logger.Info("session authenticated")
	return nil
}

// FailLogin ends a login attempt without touching any existing session.
func (m *Manager) FailLogin(ctx context.Context) {
	token, err := m.store.Load(ctx)
	if err == nil && token != "" {
		m.setState(StateAuthenticated)
		return
	}
	m.setState(StateAnonymous)
}

// Hydrate restores a persisted session at startup. It reports whether a
// token was found.
func (m *Manager) Hydrate(ctx context.Context) (bool, error) {
	token, err := m.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load persisted token: %w", err)
	}
	if token == "" {
		m.setState(StateAnonymous)
		return false, nil
	}
	m.setDefaultToken(token)
	m.setState(StateAuthenticated)
	return true, nil
}

// Reset purges the token from the store and the default header. It is safe
// to call when no session exists.
func (m *Manager) Reset(ctx context.Context) error {
	m.setDefaultToken("")
	m.setState(StateAnonymous)
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear persisted token: %w", err)
	}
	return nil
}

// Claims decodes the stored access token without verifying it. Opaque tokens
// yield empty claims.
func (m *Manager) Claims(ctx context.Context) (Claims, error) {
	token, err := m.store.Load(ctx)
	if err != nil {
		return Claims{}, err
	}
	if token == "" {
		return Claims{}, ErrNoSession
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}, nil
	}

	var claims Claims
	if subject, err := parsed.Claims.GetSubject(); err == nil {
		claims.Subject = subject
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time.UTC()
	}
	return claims, nil
}

// AttachToken sets the bearer header from the stored token and returns the
// token it used. Public requests and requests with no stored token are left
// untouched.
func (m *Manager) AttachToken(req *http.Request) string {
	if IsPublic(req.Context()) {
		return ""
	}

	token, err := m.store.Load(req.Context())
	if err != nil {
		m.logger.Warn("failed to read stored token, using default header", "error", err)
		token = m.DefaultToken()
	}
	if token == "" {
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return token
}

// refresh rotates the token. Callers that fail at the same time share one
// refresh call, and a failed refresh expires the session exactly once.
func (m *Manager) refresh(ctx context.Context) (string, error) {
	m.mu.RLock()
	refresher := m.refresher
	m.mu.RUnlock()
	if refresher == nil {
		return "", ErrNoRefresher
	}

	result, err, shared := m.group.Do("refresh", func() (any, error) {
		m.setState(StateRefreshing)
		// The refresh outlives any single caller that joined it.
		rctx := context.WithoutCancel(ctx)

		token, err := refresher.RefreshToken(rctx)
		if err == nil && token == "" {
			err = ErrEmptyToken
		}
		if err == nil {
			if saveErr := m.store.Save(rctx, token); saveErr != nil {
				err = fmt.Errorf("failed to persist refreshed token: %w", saveErr)
			}
		}
		if err != nil {
			m.expire(rctx, err)
			return "", err
		}
		m.setDefaultToken(token)
		m.setState(StateAuthenticated)
		return token, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		m.logger.Debug("joined in-flight token refresh")
	}
	return result.(string), nil
}

// expire makes a refresh failure terminal.
func (m *Manager) expire(ctx context.Context, cause error) {
	if err := m.Reset(ctx); err != nil {
		m.logger.Error("failed to purge token after refresh failure", "error", err)
	}
	m.logger.Warn("session expired", "error", cause)

	m.mu.RLock()
	hooks := append([]func(context.Context){}, m.expiredHooks...)
	m.mu.RUnlock()
	for _, hook := range hooks {
		hook(ctx)
	}
}

// Transport returns a RoundTripper that authorizes requests through m.
// A nil base uses http.DefaultTransport.
func (m *Manager) Transport(base http.RoundTripper) *Transport {
	return &Transport{manager: m, Base: base}
}
