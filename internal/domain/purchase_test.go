package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBuildTransactionRequest(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	amount := decimal.NewFromInt(1500)

	tests := []struct {
		name     string
		intent   TransactionRequest
		duration string
		want     TransactionRequest
	}{
		{
			name: "transfer",
			intent: TransactionRequest{Type: TypeTransfer, Amount: amount, AccountNumber: "0123456789",
				AccountName: "BOLA ADE", BankName: "GTBank", Description: "rent", PIN: "4821", Phone: "08030000000"},
			want: TransactionRequest{Type: TypeTransfer, Amount: amount, AccountNumber: "0123456789",
				AccountName: "BOLA ADE", BankName: "GTBank", Provider: "GTBank", Recipient: "BOLA ADE", Description: "rent", PIN: "4821"},
		},
		{
			name:   "transfer without account number passes through",
			intent: TransactionRequest{Type: TypeTransfer, Amount: amount, Recipient: "Bola"},
			want:   TransactionRequest{Type: TypeTransfer, Amount: amount, Recipient: "Bola"},
		},
		{
			name:   "airtime",
			intent: TransactionRequest{Type: TypeAirtimePurchase, Amount: amount, Phone: "08031234567", Provider: "MTN", PIN: "4821", Category: "ignored"},
			want:   TransactionRequest{Type: TypeAirtimePurchase, Amount: amount, Phone: "08031234567", Provider: "MTN", PIN: "4821"},
		},
		{
			name:     "data with weekly plan",
			intent:   TransactionRequest{Type: TypeDataPurchase, Amount: amount, Phone: "08031234567", Provider: "Airtel", PlanLabel: "2GB", PIN: "4821"},
			duration: "Weekly",
			want: TransactionRequest{Type: TypeDataPurchase, Amount: amount, Phone: "08031234567", Provider: "Airtel",
				PlanLabel: "2GB", Expiry: "2026-03-21", PIN: "4821"},
		},
		{
			name:     "data with explicit expiry",
			intent:   TransactionRequest{Type: TypeDataPurchase, Amount: amount, Phone: "08031234567", Provider: "Glo", PlanLabel: "1GB", Expiry: "2026-04-01"},
			duration: "Daily",
			want:     TransactionRequest{Type: TypeDataPurchase, Amount: amount, Phone: "08031234567", Provider: "Glo", PlanLabel: "1GB", Expiry: "2026-04-01"},
		},
		{
			name:   "bill",
			intent: TransactionRequest{Type: TypeBillPayment, Amount: amount, Category: "Electricity", Provider: "IKEDC", AccountNumber: "45012345678", PIN: "4821"},
			want:   TransactionRequest{Type: TypeBillPayment, Amount: amount, Category: "Electricity", Provider: "IKEDC", AccountNumber: "45012345678", PIN: "4821"},
		},
		{
			name:   "betting",
			intent: TransactionRequest{Type: TypeBetting, Amount: amount, Provider: "Bet9ja", AccountNumber: "778899", AccountName: "ADA OBI", PIN: "4821"},
			want: TransactionRequest{Type: TypeBetting, Amount: amount, Provider: "Bet9ja", AccountNumber: "778899",
				AccountName: "ADA OBI", Recipient: "ADA OBI", PIN: "4821"},
		},
		{
			name:   "untyped passes through",
			intent: TransactionRequest{Amount: amount, Recipient: "Bola"},
			want:   TransactionRequest{Amount: amount, Recipient: "Bola"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildTransactionRequest(tt.intent, tt.duration, now)
			if !got.Amount.Equal(tt.want.Amount) {
				t.Fatalf("expected amount %s, got %s", tt.want.Amount, got.Amount)
			}
			got.Amount, tt.want.Amount = decimal.Zero, decimal.Zero
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
