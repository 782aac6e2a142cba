/**
 * @description
 * This file defines the core ledger models held by the wallet gateway. The
 * gateway never computes balances itself; every record here is a copy of what
 * the backend confirmed, reshaped into one canonical form.
 *
 * @notes
 * - Amounts are signed decimals in naira: negative for debits, positive for credits.
 * - Transaction ids are server-assigned and unique within the local list.
 */

package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates the ledger event kinds the backend reports.
type TransactionType string

const (
	TypeTransfer         TransactionType = "Transfer"
	TypeBillPayment      TransactionType = "Bill Payment"
	TypeAirtimePurchase  TransactionType = "Airtime Purchase"
	TypeDataPurchase     TransactionType = "Data Purchase"
	TypeBetting          TransactionType = "Betting"
	TypeRewardPoints     TransactionType = "Reward Points"
	TypeDeposit          TransactionType = "Deposit"
	TypeRewardRedemption TransactionType = "Reward Redemption"
	TypeReferralBonus    TransactionType = "Referral Bonus"
	TypeMilestone        TransactionType = "Milestone"
)

// TransactionStatus is the settlement state reported by the backend.
type TransactionStatus string

const (
	StatusSuccessful TransactionStatus = "Successful"
	StatusPending    TransactionStatus = "Pending"
	StatusFailed     TransactionStatus = "Failed"
	StatusProcessing TransactionStatus = "Processing"
)

// Transaction is the normalized ledger record kept in the local list.
type Transaction struct {
	ID        string            `json:"id"`
	Reference string            `json:"reference,omitempty"`
	Amount    decimal.Decimal   `json:"amount"`
	Type      TransactionType   `json:"type"`
	Provider  string            `json:"provider,omitempty"`
	Recipient string            `json:"recipient,omitempty"`
	PlanLabel string            `json:"planLabel,omitempty"`
	Expiry    string            `json:"expiry,omitempty"`
	Category  string            `json:"category,omitempty"`
	Status    TransactionStatus `json:"status"`
	Date      time.Time         `json:"date"`
	Points    int               `json:"points"`
}

// Account is the profile and balance snapshot returned by the backend.
// It is always replaced wholesale; no field is merged client-side.
type Account struct {
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Balance       decimal.Decimal `json:"balance"`
	AccountNumber string          `json:"account_number,omitempty"`
	BankName      string          `json:"bank_name,omitempty"`
	ProfilePic    string          `json:"profilePic,omitempty"`
	PINSet        bool            `json:"pin_set"`
}

// SortTransactions orders the list newest first. Records with equal dates keep
// their relative order.
func SortTransactions(list []Transaction) {
	slices.SortStableFunc(list, func(a, b Transaction) int {
		return b.Date.Compare(a.Date)
	})
}

// MergeTransaction replaces-or-inserts tx at the front of list, keyed on ID,
// and returns a new sorted slice. Applying it twice with the same record gives
// the same list as applying it once.
func MergeTransaction(list []Transaction, tx Transaction) []Transaction {
	merged := make([]Transaction, 0, len(list)+1)
	merged = append(merged, tx)
	for _, existing := range list {
		// Unconfirmed records carry no id and must not evict each other.
		if tx.ID != "" && existing.ID == tx.ID {
			continue
		}
		merged = append(merged, existing)
	}
	SortTransactions(merged)
	return merged
}
