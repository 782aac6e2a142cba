package domain

import (
	"errors"
	"regexp"
)

var (
	ErrWeakPIN              = errors.New("weak pin; choose a stronger pin")
	ErrPINMismatch          = errors.New("pins do not match")
	ErrInvalidAccountNumber = errors.New("account number must be exactly 10 digits")
)

var (
	pinPattern           = regexp.MustCompile(`^\d{4}$`)
	accountNumberPattern = regexp.MustCompile(`^\d{10}$`)
)

var weakPINs = map[string]struct{}{
	"1234": {},
	"1111": {},
	"0000": {},
	"1212": {},
	"4321": {},
	"2222": {},
	"9999": {},
}

// IsWeakPIN reports whether pin is on the blocklist or is not four digits.
func IsWeakPIN(pin string) bool {
	if !pinPattern.MatchString(pin) {
		return true
	}
	_, weak := weakPINs[pin]
	return weak
}

// ValidateNewPIN checks a PIN chosen at registration or PIN change.
func ValidateNewPIN(pin, confirm string) error {
	if IsWeakPIN(pin) {
		return ErrWeakPIN
	}
	if pin != confirm {
		return ErrPINMismatch
	}
	return nil
}

// ValidateAccountNumber enforces the NUBAN length before a lookup is issued.
func ValidateAccountNumber(accountNumber string) error {
	if !accountNumberPattern.MatchString(accountNumber) {
		return ErrInvalidAccountNumber
	}
	return nil
}
