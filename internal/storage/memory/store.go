package memory

import (
	"context"
	"sync"

	interfaces "github.com/paylite/wallet-ledger/internal/interfaces"
	"github.com/paylite/wallet-ledger/internal/models"
)

// MemoryDocumentStore is an in-memory implementation of
// interfaces.DocumentStore. Accounts live in a map keyed by phone and the
// transaction log is a slice kept newest first.
type MemoryDocumentStore struct {
	mu       sync.Mutex
	accounts map[string]models.Account
	txns     []models.Transaction
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		accounts: make(map[string]models.Account),
	}
}

func (m *MemoryDocumentStore) GetAccount(ctx context.Context, phone string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[phone]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	return &acct, nil
}

func (m *MemoryDocumentStore) PutAccount(ctx context.Context, acct models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[acct.Phone] = acct
	return nil
}

// AppendTransaction inserts the record at the head of the log so that the
// most recent transaction is always first.
func (m *MemoryDocumentStore) AppendTransaction(ctx context.Context, txn models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prepend(txn)
	return nil
}

func (m *MemoryDocumentStore) ListTransactions(ctx context.Context, phone string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Transaction
	for _, t := range m.txns {
		if t.From == phone || t.To == phone {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *MemoryDocumentStore) ListAllTransactions(ctx context.Context) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]models.Transaction, len(m.txns))
	copy(copied, m.txns)
	return copied, nil
}

func (m *MemoryDocumentStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make([]models.Account, 0, len(m.accounts))
	for _, acct := range m.accounts {
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// ApplyTransfer writes both account records and the transfer record under a
// single lock acquisition, so no reader can observe a half-applied transfer.
func (m *MemoryDocumentStore) ApplyTransfer(ctx context.Context, sender, receiver models.Account, txn models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[sender.Phone] = sender
	m.accounts[receiver.Phone] = receiver
	m.prepend(txn)
	return nil
}

func (m *MemoryDocumentStore) prepend(txn models.Transaction) {
	m.txns = append([]models.Transaction{txn}, m.txns...)
}

var _ interfaces.DocumentStore = (*MemoryDocumentStore)(nil)
