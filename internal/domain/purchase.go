/**
 * @description
 * Request payloads for money-movement intents. Every purchase, transfer, bet
 * and redemption is a single POST to the transactions endpoint; the backend
 * dispatches on `type` and reads the type-specific fields it needs.
 */

package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRequest is the body of a money-movement intent.
type TransactionRequest struct {
	Type           TransactionType `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Phone          string          `json:"phone,omitempty"`
	Provider       string          `json:"provider,omitempty"`
	AccountNumber  string          `json:"account_number,omitempty"`
	AccountName    string          `json:"account_name,omitempty"`
	BankName       string          `json:"bank_name,omitempty"`
	Recipient      string          `json:"recipient,omitempty"`
	Description    string          `json:"description,omitempty"`
	PlanLabel      string          `json:"planLabel,omitempty"`
	Expiry         string          `json:"expiry,omitempty"`
	Category       string          `json:"category,omitempty"`
	PointsDeducted int             `json:"pointsDeducted,omitempty"`
	PIN            string          `json:"pin,omitempty"`
}

// MarshalJSON sends the amount as a bare JSON number, which is what the
// backend's serializers expect.
func (r TransactionRequest) MarshalJSON() ([]byte, error) {
	type alias TransactionRequest
	return json.Marshal(struct {
		alias
		Amount json.Number `json:"amount"`
	}{
		alias:  alias(r),
		Amount: json.Number(r.Amount.String()),
	})
}

// WithDefaults fills the fields the backend requires.
func (r TransactionRequest) WithDefaults() TransactionRequest {
	if r.Type == "" {
		r.Type = TypeTransfer
	}
	return r
}

// NewTransferRequest builds a bank transfer to a verified account.
func NewTransferRequest(accountNumber, accountName, bankName, narration string, amount decimal.Decimal, pin string) TransactionRequest {
	return TransactionRequest{
		Type:          TypeTransfer,
		Amount:        amount,
		AccountNumber: accountNumber,
		AccountName:   accountName,
		BankName:      bankName,
		Provider:      bankName,
		Recipient:     accountName,
		Description:   narration,
		PIN:           pin,
	}
}

// NewAirtimeRequest builds an airtime top-up for a phone number.
func NewAirtimeRequest(phone, network string, amount decimal.Decimal, pin string) TransactionRequest {
	return TransactionRequest{
		Type:     TypeAirtimePurchase,
		Amount:   amount,
		Phone:    phone,
		Provider: network,
		PIN:      pin,
	}
}

// NewDataRequest builds a data bundle purchase. The expiry is derived from the
// plan duration relative to now.
func NewDataRequest(phone, network, planLabel, duration string, amount decimal.Decimal, pin string, now time.Time) TransactionRequest {
	return TransactionRequest{
		Type:      TypeDataPurchase,
		Amount:    amount,
		Phone:     phone,
		Provider:  network,
		PlanLabel: planLabel,
		Expiry:    DataPlanExpiry(duration, now),
		PIN:       pin,
	}
}

// NewBillRequest builds a utility or cable bill payment.
func NewBillRequest(category, provider, customerNumber string, amount decimal.Decimal, pin string) TransactionRequest {
	return TransactionRequest{
		Type:          TypeBillPayment,
		Amount:        amount,
		Category:      category,
		Provider:      provider,
		AccountNumber: customerNumber,
		PIN:           pin,
	}
}

// NewBettingRequest funds a verified betting wallet.
func NewBettingRequest(platform, accountNumber, accountName string, amount decimal.Decimal, pin string) TransactionRequest {
	return TransactionRequest{
		Type:          TypeBetting,
		Amount:        amount,
		Provider:      platform,
		AccountNumber: accountNumber,
		AccountName:   accountName,
		Recipient:     accountName,
		PIN:           pin,
	}
}

// BuildTransactionRequest routes an intent through the builder for its type,
// so each type carries only the fields the backend reads for it. Data
// purchases get their expiry from duration; an explicit expiry wins. Types
// without a builder pass through unchanged.
func BuildTransactionRequest(intent TransactionRequest, duration string, now time.Time) TransactionRequest {
	var req TransactionRequest
	switch intent.Type {
	case TypeTransfer:
		if intent.AccountNumber == "" {
			return intent
		}
		req = NewTransferRequest(intent.AccountNumber, intent.AccountName, intent.BankName, intent.Description, intent.Amount, intent.PIN)
	case TypeAirtimePurchase:
		req = NewAirtimeRequest(intent.Phone, intent.Provider, intent.Amount, intent.PIN)
	case TypeDataPurchase:
		req = NewDataRequest(intent.Phone, intent.Provider, intent.PlanLabel, duration, intent.Amount, intent.PIN, now)
		if intent.Expiry != "" {
			req.Expiry = intent.Expiry
		}
	case TypeBillPayment:
		req = NewBillRequest(intent.Category, intent.Provider, intent.AccountNumber, intent.Amount, intent.PIN)
	case TypeBetting:
		req = NewBettingRequest(intent.Provider, intent.AccountNumber, intent.AccountName, intent.Amount, intent.PIN)
	default:
		return intent
	}
	if req.Description == "" {
		req.Description = intent.Description
	}
	return req
}

// DataPlanExpiry returns the YYYY-MM-DD expiry for Daily, Weekly and Monthly
// plans. Unknown durations expire today.
func DataPlanExpiry(duration string, now time.Time) string {
	expiry := now.UTC()
	switch duration {
	case "Daily":
		expiry = expiry.AddDate(0, 0, 1)
	case "Weekly":
		expiry = expiry.AddDate(0, 0, 7)
	case "Monthly":
		expiry = expiry.AddDate(0, 1, 0)
	}
	return expiry.Format("2006-01-02")
}
