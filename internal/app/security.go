package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/transfa/wallet-gateway/internal/domain"
	"github.com/transfa/wallet-gateway/pkg/walletapi"
)

var (
	ErrRegistrationRejected = errors.New("registration rejected")
	ErrRecipientNotFound    = errors.New("recipient could not be verified")
)

// Registration is the sign-up form, including the PIN confirmation that never
// leaves the gateway.
type Registration struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	DOB        string `json:"dob"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	State      string `json:"state"`
	City       string `json:"city"`
	PIN        string `json:"pin"`
	ConfirmPIN string `json:"confirmPin"`
}

// Register creates a backend account. It does not sign the user in.
func (s *Store) Register(ctx context.Context, form Registration) (*walletapi.StatusResponse, error) {
	if err := domain.ValidateNewPIN(form.PIN, form.ConfirmPIN); err != nil {
		return nil, err
	}

	resp, err := s.backend.Register(ctx, walletapi.RegisterRequest{
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
		DOB:       form.DOB,
		Phone:     strings.TrimSpace(form.Phone),
		Email:     strings.TrimSpace(form.Email),
		State:     form.State,
		City:      form.City,
		PIN:       form.PIN,
	})
	if err != nil {
		s.logger.Warn("registration failed", "error", err)
		return nil, err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "registration failed"
		}
		return resp, fmt.Errorf("%w: %s", ErrRegistrationRejected, msg)
	}

	s.AddNotification("Account created successfully", domain.NotificationSuccess, domain.NotificationOptions{Title: "Registration"})
	return resp, nil
}

// VerifyRecipient resolves the holder name of a bank account.
func (s *Store) VerifyRecipient(ctx context.Context, accountNumber, bankName string) (string, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if err := domain.ValidateAccountNumber(accountNumber); err != nil {
		return "", err
	}

	resp, err := s.backend.VerifyAccount(ctx, accountNumber, strings.TrimSpace(bankName))
	if err != nil {
		return "", err
	}
	if !resp.Success || resp.AccountName == "" {
		reason := resp.Error
		if reason == "" {
			reason = "account not found"
		}
		return "", fmt.Errorf("%w: %s", ErrRecipientNotFound, reason)
	}
	return resp.AccountName, nil
}

// ValidatePIN checks the transaction PIN against the backend.
func (s *Store) ValidatePIN(ctx context.Context, pin string) (bool, error) {
	return s.backend.ValidatePIN(ctx, pin)
}

// ChangePIN sets a new transaction PIN and refreshes the account so pin_set
// reflects the change.
func (s *Store) ChangePIN(ctx context.Context, pin, confirm string) error {
	if err := domain.ValidateNewPIN(pin, confirm); err != nil {
		return err
	}

	if err := s.backend.UpdatePIN(ctx, pin); err != nil {
		s.logger.Error("pin update failed", "error", err)
		s.AddNotification(walletapi.Message(err, "Failed to update PIN"), domain.NotificationError,
			domain.NotificationOptions{Title: "Security", Persistent: true})
		return err
	}

	s.AddNotification("Transaction PIN updated", domain.NotificationSuccess, domain.NotificationOptions{Title: "Security"})
	if err := s.FetchAccount(ctx); err != nil {
		s.logger.Warn("account refresh after pin change failed", "error", err)
	}
	return nil
}
