package domain

import "github.com/shopspring/decimal"

// CheckoutCustomer is prefilled from the account snapshot.
type CheckoutCustomer struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phonenumber"`
	Name        string `json:"name"`
}

// Checkout is everything the payment provider's widget needs to open. The
// reference is issued by the backend so the provider webhook can be matched.
type Checkout struct {
	PublicKey      string           `json:"public_key"`
	Reference      string           `json:"tx_ref"`
	Amount         decimal.Decimal  `json:"amount"`
	Currency       string           `json:"currency"`
	PaymentOptions string           `json:"payment_options"`
	Customer       CheckoutCustomer `json:"customer"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
}

// PaymentEvent is published by the backend once the provider webhook lands.
type PaymentEvent struct {
	Reference string `json:"tx_ref"`
	Status    string `json:"status"`
	UserPhone string `json:"phone,omitempty"`
}
