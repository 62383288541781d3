package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KYCStatus tracks whether an account holder has uploaded a KYC document.
// There is no approved/rejected state; the demo never reviews documents.
type KYCStatus string

const (
	KYCNotSubmitted KYCStatus = "not_submitted"
	KYCSubmitted    KYCStatus = "submitted"
)

// Account is a wallet identified by its 10-digit phone number.
// OTP is ephemeral: assigned at registration, cleared on the first
// successful verification, empty afterwards.
type Account struct {
	Phone      string          `json:"phone"`
	IsVerified bool            `json:"isVerified"`
	Balance    decimal.Decimal `json:"balance"`
	KYCStatus  KYCStatus       `json:"kycStatus"`
	CreatedAt  time.Time       `json:"createdAt"`
	OTP        string          `json:"otp,omitempty"`
}

// NewAccount returns an unverified zero-balance account, the shape used both
// for explicit registration and for guest recipients of a transfer.
func NewAccount(phone string, now time.Time) Account {
	return Account{
		Phone:     phone,
		Balance:   decimal.Zero,
		KYCStatus: KYCNotSubmitted,
		CreatedAt: now,
	}
}
