package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/transfa/wallet-gateway/internal/domain"
	"github.com/transfa/wallet-gateway/pkg/walletapi"
	"golang.org/x/sync/errgroup"
)

var ErrLoginRejected = errors.New("login rejected")

// FetchAccount replaces the account with the backend's snapshot. On failure
// the previous account is kept and an error notification is queued.
func (s *Store) FetchAccount(ctx context.Context) error {
	s.setFlags(func() { s.accountLoading = true })
	defer s.setFlags(func() { s.accountLoading = false })

	gen := s.ledgerGeneration()
	account, err := s.backend.GetAccount(ctx)
	if err != nil {
		s.logger.Error("failed to fetch account", "error", err)
		s.AddNotification(walletapi.Message(err, "Failed to load account"), domain.NotificationError,
			domain.NotificationOptions{Title: "Account Error", Persistent: true})
		return err
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.logger.Info("discarding account fetched before logout")
		return nil
	}
	s.account = account
	s.mu.Unlock()
	s.notify()
	return nil
}

// FetchTransactions replaces the ledger with the backend's list, normalized
// and sorted newest first.
func (s *Store) FetchTransactions(ctx context.Context) error {
	s.setFlags(func() { s.transactionsLoading = true })
	defer s.setFlags(func() { s.transactionsLoading = false })

	gen := s.ledgerGeneration()
	raws, err := s.backend.ListTransactions(ctx)
	if err != nil {
		s.logger.Error("failed to fetch transactions", "error", err)
		s.AddNotification(walletapi.Message(err, "Failed to load transactions"), domain.NotificationError,
			domain.NotificationOptions{Title: "Transaction Error", Persistent: true})
		return err
	}

	list := domain.NormalizeTransactions(raws, s.now())
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.logger.Info("discarding transactions fetched before logout")
		return nil
	}
	s.transactions = list
	s.mu.Unlock()
	s.notify()
	return nil
}

// fetchBoth loads account and transactions concurrently. Each fetch reports
// its own failure, so neither aborts the other.
func (s *Store) fetchBoth(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error { return s.FetchAccount(ctx) })
	g.Go(func() error { return s.FetchTransactions(ctx) })
	if err := g.Wait(); err != nil {
		s.logger.Warn("initial ledger load incomplete", "error", err)
	}
}

// Login exchanges credentials for a session and loads the ledger.
func (s *Store) Login(ctx context.Context, identifier, pin string) (*walletapi.LoginResponse, error) {
	s.session.BeginLogin()

	resp, err := s.backend.Login(ctx, walletapi.LoginRequest{Identifier: strings.TrimSpace(identifier), PIN: pin})
	if err == nil && strings.TrimSpace(resp.Access) == "" {
		err = fmt.Errorf("%w: %s", ErrLoginRejected, loginMessage(resp))
	}
	if err == nil {
		err = s.session.CompleteLogin(ctx, resp.Access)
	}
	if err != nil {
		s.session.FailLogin(ctx)
		s.logger.Warn("login failed", "error", err)
		s.AddNotification(walletapi.Message(err, "Login failed"), domain.NotificationError,
			domain.NotificationOptions{Title: "Login Error", Persistent: true})
		return nil, err
	}

	s.fetchBoth(ctx)
	s.AddNotification("Login successful", domain.NotificationSuccess, domain.NotificationOptions{Title: "Welcome Back!"})
	return resp, nil
}

func loginMessage(resp *walletapi.LoginResponse) string {
	if resp != nil && resp.Message != "" {
		return resp.Message
	}
	return "response carried no access token"
}

// AddTransaction submits a money-movement intent. Only the confirmed result is
// merged into the ledger; the account is replaced when the response carries a
// snapshot.
func (s *Store) AddTransaction(ctx context.Context, req domain.TransactionRequest) (domain.Transaction, error) {
	req = req.WithDefaults()

	gen := s.ledgerGeneration()
	result, err := s.backend.CreateTransaction(ctx, req, uuid.NewString())
	if err != nil {
		s.logger.Error("transaction failed", "type", req.Type, "error", err)
		s.AddNotification(walletapi.Message(err, "Transaction failed"), domain.NotificationError,
			domain.NotificationOptions{Title: "Transaction Error", Persistent: true})
		return domain.Transaction{}, err
	}

	tx := domain.NormalizeTransaction(result.Transaction, s.now())

	s.mu.Lock()
	current := s.generation == gen
	if current {
		if result.Account != nil {
			account := *result.Account
			s.account = &account
		}
		s.transactions = domain.MergeTransaction(s.transactions, tx)
	}
	s.mu.Unlock()
	if !current {
		// The backend confirmed it, but the ledger it belonged to is gone.
		s.logger.Info("transaction confirmed after logout; ledger not updated", "transaction_id", tx.ID)
		return tx, nil
	}
	s.notify()

	label := string(tx.Type)
	if label == "" {
		label = "Transaction"
	}
	target := tx.Recipient
	if target == "" {
		target = tx.Provider
	}
	if target == "" {
		target = "your account"
	}
	s.AddNotification(
		fmt.Sprintf("%s of %s completed to %s", label, domain.FormatNaira(tx.Amount.Abs()), target),
		domain.NotificationSuccess,
		domain.NotificationOptions{Title: label + " Completed"},
	)

	s.publish(ctx, EventTransactionConfirmed, TransactionConfirmedEvent{
		TransactionID: tx.ID,
		Type:          tx.Type,
		Amount:        tx.Amount,
		Status:        tx.Status,
		OccurredAt:    tx.Date,
	})
	return tx, nil
}

// UpdateAccount sends either a profile picture (isImage with a picture set)
// or the plain fields, then replaces the account with the response.
func (s *Store) UpdateAccount(ctx context.Context, data walletapi.AccountUpdate, isImage bool) (*domain.Account, error) {
	update := walletapi.AccountUpdate{Fields: data.Fields}
	if isImage && data.ProfilePic != nil {
		update = walletapi.AccountUpdate{ProfilePic: data.ProfilePic}
	}

	gen := s.ledgerGeneration()
	account, err := s.backend.UpdateAccount(ctx, update)
	if err != nil {
		s.logger.Error("account update failed", "error", err)
		s.AddNotification(walletapi.Message(err, "Update failed"), domain.NotificationError,
			domain.NotificationOptions{Title: "Profile Error", Persistent: true})
		return nil, err
	}

	s.mu.Lock()
	if s.generation == gen {
		s.account = account
	}
	s.mu.Unlock()
	s.notify()

	s.AddNotification("Profile updated successfully", domain.NotificationSuccess, domain.NotificationOptions{Title: "Profile Update"})
	copied := *account
	return &copied, nil
}

// ResetAccount logs out locally: the ledger is dropped and the token purged.
func (s *Store) ResetAccount(ctx context.Context) error {
	s.clearLedger()

	err := s.session.Reset(ctx)
	if err != nil {
		s.logger.Warn("failed to clear stored token", "error", err)
	}

	s.AddNotification("Logged out successfully", domain.NotificationSuccess,
		domain.NotificationOptions{Title: "Logout", Persistent: true})
	return err
}

func (s *Store) clearLedger() {
	s.mu.Lock()
	s.generation++
	s.account = nil
	s.transactions = nil
	s.mu.Unlock()
	s.notify()
}

// RefreshAccount reloads the account, then the transactions.
func (s *Store) RefreshAccount(ctx context.Context) error {
	accountErr := s.FetchAccount(ctx)
	txErr := s.FetchTransactions(ctx)
	return errors.Join(accountErr, txErr)
}
