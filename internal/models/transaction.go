package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxnType discriminates the transaction log records. Failed transfers are
// logged too, as TransactionIssue records carrying the attempted amount.
type TxnType string

const (
	TxnTopUp             TxnType = "TopUp"
	TxnTransfer          TxnType = "Transfer"
	TxnInsufficientFunds TxnType = "TransactionIssue:InsufficientFunds"
)

// Transaction is one immutable record in the append-only log.
// For TopUp records From and To are both the acting phone.
type Transaction struct {
	ID        string          `json:"id"`
	Type      TxnType         `json:"type"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"ts"`
}
