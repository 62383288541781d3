package interfaces

import (
	"context"

	"github.com/paylite/wallet-ledger/internal/models"
)

// DocumentStore persists accounts and the transaction log.
// GetAccount returns models.ErrAccountNotFound for unknown phones.
// ListTransactions returns records where phone is sender or recipient,
// newest first. ApplyTransfer writes both accounts and the transfer record
// as a single atomic unit.
type DocumentStore interface {
	GetAccount(ctx context.Context, phone string) (*models.Account, error)
	PutAccount(ctx context.Context, acct models.Account) error
	AppendTransaction(ctx context.Context, txn models.Transaction) error
	ListTransactions(ctx context.Context, phone string) ([]models.Transaction, error)
	ListAllTransactions(ctx context.Context) ([]models.Transaction, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ApplyTransfer(ctx context.Context, sender, receiver models.Account, txn models.Transaction) error
}
