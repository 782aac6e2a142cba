/**
 * @description
 * The ledger store is the single source of truth for the signed-in account,
 * its transaction history and the local notification queue. It is built once
 * in main and handed to every consumer; there is no package-level instance.
 *
 * @notes
 * - Account and transactions are only ever written from confirmed backend
 *   responses. The balance is never computed here.
 * - Every failure path leaves account and transactions untouched.
 * - Listeners registered with Subscribe see a fresh Snapshot after each change.
 */

package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/transfa/wallet-gateway/internal/domain"
	"github.com/transfa/wallet-gateway/internal/store"
	"github.com/transfa/wallet-gateway/pkg/rabbitmq"
	"github.com/transfa/wallet-gateway/pkg/session"
	"github.com/transfa/wallet-gateway/pkg/walletapi"
)

// Backend is the wallet REST API as seen by the store.
type Backend interface {
	Login(ctx context.Context, req walletapi.LoginRequest) (*walletapi.LoginResponse, error)
	Register(ctx context.Context, req walletapi.RegisterRequest) (*walletapi.StatusResponse, error)
	GetAccount(ctx context.Context) (*domain.Account, error)
	UpdateAccount(ctx context.Context, update walletapi.AccountUpdate) (*domain.Account, error)
	ListTransactions(ctx context.Context) ([]domain.RawTransaction, error)
	CreateTransaction(ctx context.Context, req domain.TransactionRequest, idempotencyKey string) (*walletapi.TransactionResult, error)
	VerifyAccount(ctx context.Context, accountNumber, bankName string) (*walletapi.VerifyAccountResponse, error)
	ValidatePIN(ctx context.Context, pin string) (bool, error)
	UpdatePIN(ctx context.Context, pin string) error
	InitPayment(ctx context.Context, amount decimal.Decimal) (string, error)
	VerifyPayment(ctx context.Context, txRef string) (*walletapi.PaymentVerification, error)
}

// SessionManager is the token lifecycle the store drives on login and logout.
type SessionManager interface {
	BeginLogin()
	CompleteLogin(ctx context.Context, token string) error
	FailLogin(ctx context.Context)
	Hydrate(ctx context.Context) (bool, error)
	Reset(ctx context.Context) error
	State() session.State
	Claims(ctx context.Context) (session.Claims, error)
}

// Snapshot is a deep copy of the store state.
type Snapshot struct {
	Account             *domain.Account       `json:"account"`
	Transactions        []domain.Transaction  `json:"transactions"`
	Notifications       []domain.Notification `json:"notifications"`
	Loading             bool                  `json:"loading"`
	AccountLoading      bool                  `json:"accountLoading"`
	TransactionsLoading bool                  `json:"transactionsLoading"`
}

// Options carries the optional collaborators of a Store.
type Options struct {
	Notifications     store.NotificationCache
	Publisher         rabbitmq.Publisher
	Logger            *slog.Logger
	Clock             func() time.Time
	TopUpRefreshDelay time.Duration
	PaymentPublicKey  string
}

// Store holds the account, transaction and notification state.
type Store struct {
	backend           Backend
	session           SessionManager
	cache             store.NotificationCache
	publisher         rabbitmq.Publisher
	logger            *slog.Logger
	now               func() time.Time
	topUpRefreshDelay time.Duration
	paymentPublicKey  string

	mu                  sync.RWMutex
	generation          uint64
	account             *domain.Account
	transactions        []domain.Transaction
	notifications       []domain.Notification
	loading             bool
	accountLoading      bool
	transactionsLoading bool

	listenersMu  sync.Mutex
	listeners    map[int]func(Snapshot)
	nextListener int

	persistMu sync.Mutex

	timersMu sync.Mutex
	timers   map[*time.Timer]struct{}
	closed   bool
}

// NewStore builds the store and restores cached notifications. The store
// starts in the loading state until Hydrate runs.
func NewStore(ctx context.Context, backend Backend, sessions SessionManager, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	cache := opts.Notifications
	if cache == nil {
		cache = store.NewMemoryNotificationCache()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = &rabbitmq.EventProducerFallback{Logger: logger}
	}

	s := &Store{
		backend:           backend,
		session:           sessions,
		cache:             cache,
		publisher:         publisher,
		logger:            logger.With("component", "ledger_store"),
		now:               clock,
		topUpRefreshDelay: opts.TopUpRefreshDelay,
		paymentPublicKey:  opts.PaymentPublicKey,
		loading:           true,
		listeners:         make(map[int]func(Snapshot)),
		timers:            make(map[*time.Timer]struct{}),
	}

	restored, err := cache.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to restore notifications", "error", err)
	}
	s.notifications = restored
	return s
}

// Hydrate restores a persisted session at startup and, when a token exists,
// loads the account and transactions concurrently.
func (s *Store) Hydrate(ctx context.Context) {
	s.setFlags(func() { s.loading = true })

	found, err := s.session.Hydrate(ctx)
	if err != nil {
		s.logger.Warn("failed to hydrate session", "error", err)
	}
	if found {
		s.fetchBoth(ctx)
	}

	s.setFlags(func() { s.loading = false })
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Transactions:        append([]domain.Transaction{}, s.transactions...),
		Notifications:       append([]domain.Notification{}, s.notifications...),
		Loading:             s.loading,
		AccountLoading:      s.accountLoading,
		TransactionsLoading: s.transactionsLoading,
	}
	if s.account != nil {
		account := *s.account
		snap.Account = &account
	}
	return snap
}

// Account returns a copy of the account, or nil when none is loaded.
func (s *Store) Account() *domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return nil
	}
	account := *s.account
	return &account
}

// Transactions returns a copy of the local ledger, newest first.
func (s *Store) Transactions() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Transaction{}, s.transactions...)
}

// SessionState reports the session lifecycle stage.
func (s *Store) SessionState() session.State {
	return s.session.State()
}

// SessionClaims exposes the unverified access-token claims.
func (s *Store) SessionClaims(ctx context.Context) (session.Claims, error) {
	return s.session.Claims(ctx)
}

// Subscribe registers fn to receive a Snapshot after every change. The
// returned function removes the listener.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Store) notify() {
	s.listenersMu.Lock()
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.listenersMu.Unlock()

	if len(listeners) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range listeners {
		fn(snap)
	}
}

// ledgerGeneration identifies the signed-in ledger. clearLedger advances it,
// and a backend response that started under an older generation is dropped.
func (s *Store) ledgerGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store) setFlags(update func()) {
	s.mu.Lock()
	update()
	s.mu.Unlock()
	s.notify()
}

// after runs fn once delay has elapsed unless the store is closed first.
func (s *Store) after(delay time.Duration, fn func()) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if s.closed {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.timersMu.Lock()
		delete(s.timers, timer)
		s.timersMu.Unlock()
		fn()
	})
	s.timers[timer] = struct{}{}
}

// Close cancels pending delayed refreshes.
func (s *Store) Close() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	s.closed = true
	for timer := range s.timers {
		timer.Stop()
	}
	s.timers = map[*time.Timer]struct{}{}
}
