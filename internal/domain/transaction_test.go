package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func txAt(id string, day int) Transaction {
	return Transaction{
		ID:     id,
		Type:   TypeTransfer,
		Status: StatusSuccessful,
		Date:   time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
	}
}

func assertSortedDesc(t *testing.T, list []Transaction) {
	t.Helper()
	for i := 1; i < len(list); i++ {
		if list[i-1].Date.Before(list[i].Date) {
			t.Fatalf("list not sorted at %d: %s before %s", i, list[i-1].Date, list[i].Date)
		}
	}
}

func TestMergeTransactionIsIdempotent(t *testing.T) {
	list := []Transaction{txAt("a", 3), txAt("b", 2), txAt("c", 1)}
	incoming := txAt("tx_9", 4)

	once := MergeTransaction(list, incoming)
	twice := MergeTransaction(once, incoming)

	if len(once) != 4 || len(twice) != 4 {
		t.Fatalf("expected 4 entries, got %d then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatalf("merge twice differs at %d: %q vs %q", i, once[i].ID, twice[i].ID)
		}
	}
	if once[0].ID != "tx_9" {
		t.Fatalf("expected newest record at index 0, got %q", once[0].ID)
	}
}

func TestMergeTransactionReplacesSameID(t *testing.T) {
	first := txAt("tx_9", 5)
	first.Status = StatusPending
	second := txAt("tx_9", 5)
	second.Status = StatusSuccessful

	list := MergeTransaction([]Transaction{txAt("a", 1)}, first)
	list = MergeTransaction(list, second)

	count := 0
	for _, tx := range list {
		if tx.ID == "tx_9" {
			count++
			if tx.Status != StatusSuccessful {
				t.Fatalf("expected latest echo to win, got status %q", tx.Status)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one tx_9, got %d", count)
	}
}

func TestMergeTransactionKeepsNewestFirst(t *testing.T) {
	list := []Transaction{txAt("a", 20), txAt("b", 10)}
	// An older record echoed late lands by date, not at the front.
	list = MergeTransaction(list, txAt("old", 15))
	assertSortedDesc(t, list)
	if list[1].ID != "old" {
		t.Fatalf("expected old record at index 1, got %q", list[1].ID)
	}
}

func TestMergeTransactionDoesNotEvictOnEmptyID(t *testing.T) {
	list := []Transaction{txAt("", 2)}
	list = MergeTransaction(list, txAt("", 3))
	if len(list) != 2 {
		t.Fatalf("expected both unconfirmed records to be kept, got %d", len(list))
	}
}

func TestMergeTransactionDoesNotMutateInput(t *testing.T) {
	list := []Transaction{txAt("a", 1), txAt("b", 2)}
	_ = MergeTransaction(list, txAt("c", 3))
	if list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("input list was reordered: %q, %q", list[0].ID, list[1].ID)
	}
}

func TestSortTransactionsIsStable(t *testing.T) {
	list := []Transaction{txAt("first", 1), txAt("second", 1), txAt("newer", 2)}
	SortTransactions(list)
	if list[0].ID != "newer" || list[1].ID != "first" || list[2].ID != "second" {
		t.Fatalf("unexpected order: %q %q %q", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestTransactionRequestEncodesAmountAsNumber(t *testing.T) {
	req := NewAirtimeRequest("08030000000", "MTN", decimal.NewFromInt(500), "")
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if amount, ok := decoded["amount"].(float64); !ok || amount != 500 {
		t.Fatalf("expected numeric amount 500, got %#v", decoded["amount"])
	}
	if decoded["type"] != "Airtime Purchase" || decoded["provider"] != "MTN" || decoded["phone"] != "08030000000" {
		t.Fatalf("unexpected body: %s", body)
	}
	if _, ok := decoded["pin"]; ok {
		t.Fatalf("expected empty pin to be omitted, got %s", body)
	}
}

func TestTransactionRequestWithDefaults(t *testing.T) {
	req := TransactionRequest{Amount: decimal.NewFromInt(100)}.WithDefaults()
	if req.Type != TypeTransfer {
		t.Fatalf("expected default type Transfer, got %q", req.Type)
	}

	kept := TransactionRequest{Type: TypeBetting}.WithDefaults()
	if kept.Type != TypeBetting {
		t.Fatalf("expected explicit type to be kept, got %q", kept.Type)
	}
}

func TestDataPlanExpiry(t *testing.T) {
	now := time.Date(2024, 1, 31, 22, 0, 0, 0, time.UTC)
	tests := []struct {
		duration string
		want     string
	}{
		{duration: "Daily", want: "2024-02-01"},
		{duration: "Weekly", want: "2024-02-07"},
		{duration: "Monthly", want: "2024-03-02"},
		{duration: "Unknown", want: "2024-01-31"},
	}

	for _, tt := range tests {
		t.Run(tt.duration, func(t *testing.T) {
			if got := DataPlanExpiry(tt.duration, now); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormatNaira(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{amount: "500", want: "₦500"},
		{amount: "1500", want: "₦1,500"},
		{amount: "1234567.50", want: "₦1,234,567.5"},
		{amount: "-25000", want: "-₦25,000"},
		{amount: "0", want: "₦0"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			if got := FormatNaira(decimal.RequireFromString(tt.amount)); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
