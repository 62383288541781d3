package models

import "time"

// KYCDocument is the opaque payload a user uploads for verification.
// It lives in the blob store; the account record only mirrors the status.
type KYCDocument struct {
	Phone     string    `json:"phone"`
	Payload   []byte    `json:"payload"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}
