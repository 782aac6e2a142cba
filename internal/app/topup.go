package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/transfa/wallet-gateway/internal/domain"
)

var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrMissingReference  = errors.New("payment reference is required")
	ErrPaymentNotEnabled = errors.New("payment provider public key is not configured")
)

const (
	checkoutCurrency       = "NGN"
	checkoutPaymentOptions = "card,ussd,banktransfer"
)

// StartTopUp opens a provider payment for amount and returns what the
// checkout widget needs. The ledger is untouched until the provider webhook
// lands on the backend.
func (s *Store) StartTopUp(ctx context.Context, amount decimal.Decimal) (*domain.Checkout, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if s.paymentPublicKey == "" {
		return nil, ErrPaymentNotEnabled
	}

	ref, err := s.backend.InitPayment(ctx, amount)
	if err != nil {
		s.logger.Error("payment init failed", "error", err)
		return nil, err
	}

	var customer domain.CheckoutCustomer
	if account := s.Account(); account != nil {
		customer = domain.CheckoutCustomer{
			Email:       account.Email,
			PhoneNumber: account.Phone,
			Name:        account.FullName,
		}
	}

	return &domain.Checkout{
		PublicKey:      s.paymentPublicKey,
		Reference:      ref,
		Amount:         amount,
		Currency:       checkoutCurrency,
		PaymentOptions: checkoutPaymentOptions,
		Customer:       customer,
		Title:          "Wallet Top-Up",
		Description:    "Fund your wallet",
	}, nil
}

// CompleteTopUp is called when the checkout widget reports back. Verification
// is best effort; the refresh is delayed to give the webhook time to credit
// the wallet.
func (s *Store) CompleteTopUp(ctx context.Context, reference string) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return ErrMissingReference
	}

	if result, err := s.backend.VerifyPayment(ctx, reference); err != nil {
		s.logger.Warn("payment verification failed", "tx_ref", reference, "error", err)
	} else {
		s.logger.Info("payment verification", "tx_ref", reference, "status", result.Status)
	}

	s.AddNotification("Top-up received. Your balance will update shortly.", domain.NotificationInfo,
		domain.NotificationOptions{Title: "Wallet Top-Up"})

	s.after(s.topUpRefreshDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.RefreshAccount(ctx); err != nil {
			s.logger.Warn("post top-up refresh failed", "tx_ref", reference, "error", err)
		}
	})
	return nil
}
