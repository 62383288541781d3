package memory

import (
	"context"
	"sync"

	interfaces "github.com/paylite/wallet-ledger/internal/interfaces"
	"github.com/paylite/wallet-ledger/internal/models"
)

// MemoryBlobStore is an in-memory implementation of interfaces.BlobStore,
// one KYC document per phone, last write wins.
type MemoryBlobStore struct {
	mu   sync.Mutex
	docs map[string]models.KYCDocument
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{docs: make(map[string]models.KYCDocument)}
}

func (m *MemoryBlobStore) Put(ctx context.Context, doc models.KYCDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[doc.Phone] = doc
	return nil
}

func (m *MemoryBlobStore) Get(ctx context.Context, phone string) (*models.KYCDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[phone]
	if !ok {
		return nil, models.ErrDocumentNotFound
	}
	return &doc, nil
}

var _ interfaces.BlobStore = (*MemoryBlobStore)(nil)
