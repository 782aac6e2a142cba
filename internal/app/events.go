package app

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/transfa/wallet-gateway/internal/domain"
)

const (
	EventTransactionConfirmed = "wallet.transaction.confirmed"
	EventSessionExpired       = "wallet.session.expired"
	EventPaymentReceived      = "payment.webhook.received"
)

// TransactionConfirmedEvent is announced after the backend confirms a
// money movement requested through this gateway.
type TransactionConfirmedEvent struct {
	TransactionID string                   `json:"transaction_id"`
	Type          domain.TransactionType   `json:"type"`
	Amount        decimal.Decimal          `json:"amount"`
	Status        domain.TransactionStatus `json:"status"`
	OccurredAt    time.Time                `json:"occurred_at"`
}

// SessionExpiredEvent is announced when a silent refresh fails.
type SessionExpiredEvent struct {
	ExpiredAt time.Time `json:"expired_at"`
}

func (s *Store) publish(ctx context.Context, routingKey string, event interface{}) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), routingKey, event); err != nil {
		s.logger.Warn("failed to publish event", "routing_key", routingKey, "error", err)
	}
}

// HandleSessionExpired is registered as the session manager's expiry hook.
// The ledger belongs to the expired session and is dropped with it.
func (s *Store) HandleSessionExpired(ctx context.Context) {
	s.clearLedger()
	s.AddNotification("Your session has expired. Please log in again.", domain.NotificationWarning,
		domain.NotificationOptions{Title: "Session Expired", Persistent: true})
	s.publish(ctx, EventSessionExpired, SessionExpiredEvent{ExpiredAt: s.now().UTC()})
}

// HandlePaymentReceived consumes payment webhook events. A confirmed payment
// triggers an immediate ledger refresh. It returns false only when the
// refresh should be retried.
func (s *Store) HandlePaymentReceived(body []byte) bool {
	var event domain.PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.logger.Warn("malformed payment event", "error", err)
		return true
	}

	status := strings.ToLower(strings.TrimSpace(event.Status))
	if status != "successful" && status != "completed" {
		s.logger.Info("ignoring payment event", "tx_ref", event.Reference, "status", event.Status)
		return true
	}

	account := s.Account()
	if account == nil {
		return true
	}
	if event.UserPhone != "" && account.Phone != "" && event.UserPhone != account.Phone {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.RefreshAccount(ctx); err != nil {
		s.logger.Warn("refresh after payment event failed", "tx_ref", event.Reference, "error", err)
		return false
	}
	s.logger.Info("ledger refreshed after payment event", "tx_ref", event.Reference)
	return true
}
