package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FlexString accepts a JSON string, number or boolean and keeps its text.
// null, objects and arrays decode to the empty string.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		*s = ""
		return nil
	}
	switch trimmed[0] {
	case '"':
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*s = FlexString(value)
	case '{', '[', 'n':
		*s = ""
	default:
		*s = FlexString(trimmed)
	}
	return nil
}

func (s FlexString) String() string {
	return strings.TrimSpace(string(s))
}

// RawTransaction is any of the record shapes the backend has used for ledger
// events, including the legacy field names.
type RawTransaction struct {
	ID              FlexString `json:"id"`
	Reference       FlexString `json:"reference"`
	Amount          FlexString `json:"amount"`
	Type            FlexString `json:"type"`
	TransactionType FlexString `json:"transaction_type"`
	Provider        FlexString `json:"provider"`
	AccountName     FlexString `json:"account_name"`
	Recipient       FlexString `json:"recipient"`
	Phone           FlexString `json:"phone"`
	Beneficiary     FlexString `json:"beneficiary"`
	PlanLabel       FlexString `json:"planLabel"`
	Expiry          FlexString `json:"expiry"`
	Category        FlexString `json:"category"`
	Status          FlexString `json:"status"`
	Date            FlexString `json:"date"`
	Timestamp       FlexString `json:"timestamp"`
	Points          FlexString `json:"points"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeTransaction maps a raw record into the canonical Transaction.
// An explicit field wins over its legacy name; empty values count as absent.
// It never fails: missing or malformed optional fields take their defaults.
func NormalizeTransaction(raw RawTransaction, now time.Time) Transaction {
	date, ok := parseDate(raw.Date.String())
	if !ok {
		date, ok = parseDate(raw.Timestamp.String())
	}
	if !ok {
		date = now.UTC()
	}

	status := TransactionStatus(raw.Status.String())
	if status == "" {
		status = StatusSuccessful
	}

	return Transaction{
		ID:        raw.ID.String(),
		Reference: raw.Reference.String(),
		Amount:    parseAmount(raw.Amount.String()),
		Type:      TransactionType(firstNonEmpty(raw.Type.String(), raw.TransactionType.String())),
		Provider:  firstNonEmpty(raw.Provider.String(), raw.AccountName.String()),
		Recipient: firstNonEmpty(raw.Recipient.String(), raw.Phone.String(), raw.Beneficiary.String()),
		PlanLabel: raw.PlanLabel.String(),
		Expiry:    raw.Expiry.String(),
		Category:  raw.Category.String(),
		Status:    status,
		Date:      date,
		Points:    parsePoints(raw.Points.String()),
	}
}

// NormalizeTransactions normalizes and sorts a fetched list.
func NormalizeTransactions(raws []RawTransaction, now time.Time) []Transaction {
	list := make([]Transaction, 0, len(raws))
	for _, raw := range raws {
		list = append(list, NormalizeTransaction(raw, now))
	}
	SortTransactions(list)
	return list
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseAmount(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func parsePoints(value string) int {
	if value == "" {
		return 0
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if d, err := decimal.NewFromString(value); err == nil {
		return int(d.IntPart())
	}
	return 0
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if isDigits(value) {
		epoch, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		// Millisecond epochs are what JavaScript clients send.
		if epoch > 1e12 {
			return time.UnixMilli(epoch).UTC(), true
		}
		return time.Unix(epoch, 0).UTC(), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}
