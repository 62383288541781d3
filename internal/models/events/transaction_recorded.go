package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecorded is emitted after a transaction record is appended to
// the log, including insufficient-funds issue records.
type TransactionRecorded struct {
	EventID       string          `json:"event_id"`
	TransactionID string          `json:"transaction_id"`
	Type          string          `json:"type"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
