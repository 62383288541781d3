package postgres

import (
	"context"
	"database/sql"
	"errors"

	interfaces "github.com/paylite/wallet-ledger/internal/interfaces"
	"github.com/paylite/wallet-ledger/internal/models"
)

// PostgresBlobStore keeps KYC document payloads in a bytea column,
// one row per phone.
type PostgresBlobStore struct {
	db *sql.DB
}

func NewPostgresBlobStore(db *sql.DB) *PostgresBlobStore {
	return &PostgresBlobStore{db: db}
}

func (p *PostgresBlobStore) Put(ctx context.Context, doc models.KYCDocument) error {
	const query = `INSERT INTO kyc_documents (phone, payload, status, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (phone) DO UPDATE SET
		payload = EXCLUDED.payload,
		status = EXCLUDED.status,
		updated_at = EXCLUDED.updated_at`

	_, err := p.db.ExecContext(ctx, query, doc.Phone, doc.Payload, doc.Status, doc.UpdatedAt)
	return err
}

func (p *PostgresBlobStore) Get(ctx context.Context, phone string) (*models.KYCDocument, error) {
	const query = `SELECT phone, payload, status, updated_at FROM kyc_documents WHERE phone = $1`

	var doc models.KYCDocument
	err := p.db.QueryRowContext(ctx, query, phone).Scan(&doc.Phone, &doc.Payload, &doc.Status, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

var _ interfaces.BlobStore = (*PostgresBlobStore)(nil)
