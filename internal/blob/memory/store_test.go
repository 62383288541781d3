package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylite/wallet-ledger/internal/blob/memory"
	"github.com/paylite/wallet-ledger/internal/models"
)

func TestPutAndGet(t *testing.T) {
	store := memory.NewMemoryBlobStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "9000000001")
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)

	doc := models.KYCDocument{
		Phone:     "9000000001",
		Payload:   []byte("scan-v1"),
		Status:    string(models.KYCSubmitted),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, store.Put(ctx, doc))

	got, err := store.Get(ctx, "9000000001")
	require.NoError(t, err)
	assert.Equal(t, doc.Payload, got.Payload)
	assert.Equal(t, doc.Status, got.Status)
}

func TestPut_LastWriteWins(t *testing.T) {
	store := memory.NewMemoryBlobStore()
	ctx := context.Background()

	first := models.KYCDocument{Phone: "9000000001", Payload: []byte("v1"), Status: "submitted", UpdatedAt: time.Now()}
	second := models.KYCDocument{Phone: "9000000001", Payload: []byte("v2"), Status: "submitted", UpdatedAt: time.Now()}
	require.NoError(t, store.Put(ctx, first))
	require.NoError(t, store.Put(ctx, second))

	got, err := store.Get(ctx, "9000000001")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got.Payload)
}
