package models

import "errors"

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrDocumentNotFound  = errors.New("kyc document not found")
	ErrInvalidPhone      = errors.New("phone must be exactly 10 digits")
	ErrInvalidOTP        = errors.New("invalid otp")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrInsufficientFunds = errors.New("insufficient balance")
)
