package interfaces

import (
	"context"

	"github.com/paylite/wallet-ledger/internal/models"
)

// BlobStore holds KYC document payloads keyed by phone.
// Get returns models.ErrDocumentNotFound when nothing was uploaded.
type BlobStore interface {
	Put(ctx context.Context, doc models.KYCDocument) error
	Get(ctx context.Context, phone string) (*models.KYCDocument, error)
}
