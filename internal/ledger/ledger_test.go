package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	blobmemory "github.com/paylite/wallet-ledger/internal/blob/memory"
	"github.com/paylite/wallet-ledger/internal/ledger"
	"github.com/paylite/wallet-ledger/internal/models"
	storememory "github.com/paylite/wallet-ledger/internal/storage/memory"
)

// MockPublisher implements interfaces.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, event any) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func newTestLedger() (*ledger.Ledger, *storememory.MemoryDocumentStore) {
	store := storememory.NewMemoryDocumentStore()
	l := ledger.NewLedger(store, blobmemory.NewMemoryBlobStore(), nil, "")
	return l, store
}

func login(t *testing.T, l *ledger.Ledger, phone string) *ledger.Session {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, l.RegisterOrRefreshOTP(ctx, phone))
	sess, err := l.VerifyOTP(ctx, phone, ledger.DefaultOTP)
	require.NoError(t, err)
	return sess
}

func TestRegisterOrRefreshOTP_InvalidPhone(t *testing.T) {
	l, store := newTestLedger()
	ctx := context.Background()

	for _, phone := range []string{"", "12345", "123456789", "12345678901", "90000000ab", "9000 00001"} {
		assert.ErrorIs(t, l.RegisterOrRefreshOTP(ctx, phone), models.ErrInvalidPhone, "phone %q", phone)
		_, err := store.GetAccount(ctx, phone)
		assert.ErrorIs(t, err, models.ErrAccountNotFound)
	}
}

func TestRegisterOrRefreshOTP_CreatesAccount(t *testing.T) {
	l, store := newTestLedger()
	ctx := context.Background()

	require.NoError(t, l.RegisterOrRefreshOTP(ctx, "9000000001"))

	// The account is visible before verification completes.
	acct, err := store.GetAccount(ctx, "9000000001")
	require.NoError(t, err)
	assert.False(t, acct.IsVerified)
	assert.True(t, acct.Balance.IsZero())
	assert.Equal(t, models.KYCNotSubmitted, acct.KYCStatus)
	assert.Equal(t, ledger.DefaultOTP, acct.OTP)
	assert.False(t, acct.CreatedAt.IsZero())
}

func TestRegisterOrRefreshOTP_RefreshKeepsExistingAccount(t *testing.T) {
	l, store := newTestLedger()
	ctx := context.Background()

	sess := login(t, l, "9000000001")
	_, err := l.TopUp(ctx, sess, decimal.NewFromInt(100))
	require.NoError(t, err)

	// Re-registering assigns a fresh OTP but keeps the balance.
	require.NoError(t, l.RegisterOrRefreshOTP(ctx, "9000000001"))

	acct, err := store.GetAccount(ctx, "9000000001")
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultOTP, acct.OTP)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(100)), "got %s", acct.Balance)
	assert.True(t, acct.IsVerified)
}

func TestVerifyOTP(t *testing.T) {
	l, store := newTestLedger()
	ctx := context.Background()

	_, err := l.VerifyOTP(ctx, "9000000001", ledger.DefaultOTP)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)

	require.NoError(t, l.RegisterOrRefreshOTP(ctx, "9000000001"))

	_, err = l.VerifyOTP(ctx, "9000000001", "0000")
	assert.ErrorIs(t, err, models.ErrInvalidOTP)

	// The failed attempt left no side effects.
	acct, err := store.GetAccount(ctx, "9000000001")
	require.NoError(t, err)
	assert.False(t, acct.IsVerified)
	assert.Equal(t, ledger.DefaultOTP, acct.OTP)

	sess, err := l.VerifyOTP(ctx, "9000000001", ledger.DefaultOTP)
	require.NoError(t, err)
	assert.True(t, sess.Active())
	assert.Equal(t, "9000000001", sess.Phone())

	acct, err = store.GetAccount(ctx, "9000000001")
	require.NoError(t, err)
	assert.True(t, acct.IsVerified)
	assert.Empty(t, acct.OTP)

	// The code was cleared, so immediate re-verification fails.
	_, err = l.VerifyOTP(ctx, "9000000001", ledger.DefaultOTP)
	assert.ErrorIs(t, err, models.ErrInvalidOTP)
}

func TestVerifyOTP_EmptyCodeNeverMatches(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	login(t, l, "9000000001")

	// The stored code is empty after verification; an empty submission must
	// still be rejected.
	_, err := l.VerifyOTP(ctx, "9000000001", "")
	assert.ErrorIs(t, err, models.ErrInvalidOTP)
}

func TestSessionLifecycle(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	sess := login(t, l, "9000000001")
	require.True(t, sess.Active())

	sess.End()
	assert.False(t, sess.Active())

	_, err := l.TopUp(ctx, sess, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, models.ErrNotLoggedIn)
	_, err = l.Balance(ctx, sess)
	assert.ErrorIs(t, err, models.ErrNotLoggedIn)
	_, err = l.Statement(ctx, sess)
	assert.ErrorIs(t, err, models.ErrNotLoggedIn)
	_, err = l.Transfer(ctx, sess, "9000000002", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, models.ErrNotLoggedIn)
	assert.ErrorIs(t, l.SubmitKYC(ctx, sess, []byte("doc")), models.ErrNotLoggedIn)

	// A nil session behaves like no session at all.
	_, err = l.TopUp(ctx, nil, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, models.ErrNotLoggedIn)
}

func TestTopUp(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	sess := login(t, l, "9000000001")

	txn, err := l.TopUp(ctx, sess, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.Equal(t, models.TxnTopUp, txn.Type)
	assert.Equal(t, "9000000001", txn.From)
	assert.Equal(t, "9000000001", txn.To)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(500)))
	assert.NotEmpty(t, txn.ID)

	balance, err := l.Balance(ctx, sess)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(500)), "got %s", balance)

	txns, err := l.Statement(ctx, sess)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, txn.ID, txns[0].ID)
}

func TestTopUp_RejectsNonPositiveAmounts(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	sess := login(t, l, "9000000001")

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-50)} {
		_, err := l.TopUp(ctx, sess, amount)
		assert.ErrorIs(t, err, models.ErrInvalidAmount, "amount %s", amount)
	}

	balance, err := l.Balance(ctx, sess)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	txns, err := l.Statement(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

// TestTransferScenario walks the full demo flow: register, verify, top up,
// transfer to an unknown recipient, then overdraw.
func TestTransferScenario(t *testing.T) {
	l, store := newTestLedger()
	ctx := context.Background()

	sess := login(t, l, "9000000001")

	_, err := l.TopUp(ctx, sess, decimal.NewFromInt(500))
	require.NoError(t, err)

	result, err := l.Transfer(ctx, sess, "9000000002", decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.True(t, result.CreatedGuest)
	assert.Equal(t, models.TxnTransfer, result.Transaction.Type)
	assert.Equal(t, "9000000001", result.Transaction.From)
	assert.Equal(t, "9000000002", result.Transaction.To)

	balance, err := l.Balance(ctx, sess)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(300)), "got %s", balance)

	guest, err := store.GetAccount(ctx, "9000000002")
	require.NoError(t, err)
	assert.False(t, guest.IsVerified)
	assert.True(t, guest.Balance.Equal(decimal.NewFromInt(200)), "got %s", guest.Balance)

	result, err = l.Transfer(ctx, sess, "9000000002", decimal.NewFromInt(99999))
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.False(t, result.CreatedGuest)
	assert.Equal(t, models.TxnInsufficientFunds, result.Transaction.Type)
	assert.True(t, result.Transaction.Amount.Equal(decimal.NewFromInt(99999)))

	// Balances unchanged by the failed attempt.
	balance, err = l.Balance(ctx, sess)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(300)))
	guest, err = store.GetAccount(ctx, "9000000002")
	require.NoError(t, err)
	assert.True(t, guest.Balance.Equal(decimal.NewFromInt(200)))

	// One TopUp, one Transfer, one issue record, newest first.
	txns, err := l.Statement(ctx, sess)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, models.TxnInsufficientFunds, txns[0].Type)
	assert.Equal(t, models.TxnTransfer, txns[1].Type)
	assert.Equal(t, models.TxnTopUp, txns[2].Type)
}

func TestTransfer_InvalidReceiverPhone(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	sess := login(t, l, "9000000001")

	_, err := l.Transfer(ctx, sess, "12345", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, models.ErrInvalidPhone)

	txns, err := l.Statement(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, txns, "validation failures must not be logged")
}

func TestTransfer_RejectsNonPositiveAmounts(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	sess := login(t, l, "9000000001")

	_, err := l.Transfer(ctx, sess, "9000000002", decimal.Zero)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
	_, err = l.Transfer(ctx, sess, "9000000002", decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}

// A guest account is created for an unknown recipient even when the
// transfer itself then fails for insufficient funds.
func TestTransfer_GuestSurvivesFailedTransfer(t *testing.T) {
	l, store := newTestLedger()
	ctx := context.Background()

	sess := login(t, l, "9000000001")

	result, err := l.Transfer(ctx, sess, "9000000002", decimal.NewFromInt(50))
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.True(t, result.CreatedGuest)

	guest, err := store.GetAccount(ctx, "9000000002")
	require.NoError(t, err)
	assert.True(t, guest.Balance.IsZero())

	txns, err := l.Statement(ctx, sess)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, models.TxnInsufficientFunds, txns[0].Type)
}

func TestTransfer_SelfTransferConservesBalance(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	sess := login(t, l, "9000000001")
	_, err := l.TopUp(ctx, sess, decimal.NewFromInt(100))
	require.NoError(t, err)

	result, err := l.Transfer(ctx, sess, "9000000001", decimal.NewFromInt(40))
	require.NoError(t, err)
	assert.False(t, result.CreatedGuest)
	assert.Equal(t, models.TxnTransfer, result.Transaction.Type)

	balance, err := l.Balance(ctx, sess)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(100)), "got %s", balance)
}

// The sum of all balances is invariant across transfers and only grows by
// successful top-ups.
func TestTransfer_Conservation(t *testing.T) {
	l, store := newTestLedger()
	ctx := context.Background()

	alice := login(t, l, "9000000001")
	bob := login(t, l, "9000000002")

	_, err := l.TopUp(ctx, alice, decimal.NewFromInt(300))
	require.NoError(t, err)
	_, err = l.TopUp(ctx, bob, decimal.NewFromInt(200))
	require.NoError(t, err)

	_, err = l.Transfer(ctx, alice, "9000000002", decimal.NewFromInt(120))
	require.NoError(t, err)
	_, err = l.Transfer(ctx, bob, "9000000003", decimal.NewFromInt(75))
	require.NoError(t, err)
	_, err = l.Transfer(ctx, bob, "9000000001", decimal.NewFromInt(5))
	require.NoError(t, err)
	_, err = l.Transfer(ctx, alice, "9000000003", decimal.NewFromInt(99999))
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	total := decimal.Zero
	for _, acct := range accounts {
		total = total.Add(acct.Balance)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(500)), "got %s", total)
}

func TestKYCFlow(t *testing.T) {
	l, store := newTestLedger()
	ctx := context.Background()

	sess := login(t, l, "9000000001")

	_, err := l.KYCDocument(ctx, sess)
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)

	payload := []byte("fake-id-scan")
	require.NoError(t, l.SubmitKYC(ctx, sess, payload))

	doc, err := l.KYCDocument(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "9000000001", doc.Phone)
	assert.Equal(t, payload, doc.Payload)
	assert.Equal(t, string(models.KYCSubmitted), doc.Status)
	assert.False(t, doc.UpdatedAt.IsZero())

	acct, err := store.GetAccount(ctx, "9000000001")
	require.NoError(t, err)
	assert.Equal(t, models.KYCSubmitted, acct.KYCStatus)
}

func TestOTPForPhone(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	// Unknown phones fall back to the static demo code.
	assert.Equal(t, ledger.DefaultOTP, l.OTPForPhone(ctx, "9000000009"))

	require.NoError(t, l.RegisterOrRefreshOTP(ctx, "9000000001"))
	assert.Equal(t, ledger.DefaultOTP, l.OTPForPhone(ctx, "9000000001"))
}

func TestExport(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	sess := login(t, l, "9000000001")
	_, err := l.TopUp(ctx, sess, decimal.NewFromInt(500))
	require.NoError(t, err)
	_, err = l.Transfer(ctx, sess, "9000000002", decimal.NewFromInt(200))
	require.NoError(t, err)

	snapshot, err := l.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot.Accounts, 2)
	require.Len(t, snapshot.Transactions, 2)
	assert.Equal(t, models.TxnTransfer, snapshot.Transactions[0].Type)
	assert.Equal(t, models.TxnTopUp, snapshot.Transactions[1].Type)
}

func TestPublishesTransactionEvents(t *testing.T) {
	store := storememory.NewMemoryDocumentStore()
	mockPub := new(MockPublisher)
	mockPub.On("Publish", mock.Anything, ledger.TopicTransactionRecorded, mock.Anything).Return(nil).Times(3)

	l := ledger.NewLedger(store, blobmemory.NewMemoryBlobStore(), mockPub, "")
	ctx := context.Background()

	sess := login(t, l, "9000000001")
	_, err := l.TopUp(ctx, sess, decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = l.Transfer(ctx, sess, "9000000002", decimal.NewFromInt(60))
	require.NoError(t, err)
	_, err = l.Transfer(ctx, sess, "9000000002", decimal.NewFromInt(99999))
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	mockPub.AssertExpectations(t)
}

// A broken broker must never fail the money movement itself.
func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	store := storememory.NewMemoryDocumentStore()
	mockPub := new(MockPublisher)
	mockPub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	l := ledger.NewLedger(store, blobmemory.NewMemoryBlobStore(), mockPub, "")
	ctx := context.Background()

	sess := login(t, l, "9000000001")
	_, err := l.TopUp(ctx, sess, decimal.NewFromInt(100))
	assert.NoError(t, err)

	balance, err := l.Balance(ctx, sess)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(100)))
}

func TestCustomOTPCode(t *testing.T) {
	store := storememory.NewMemoryDocumentStore()
	l := ledger.NewLedger(store, blobmemory.NewMemoryBlobStore(), nil, "777777")
	ctx := context.Background()

	require.NoError(t, l.RegisterOrRefreshOTP(ctx, "9000000001"))

	_, err := l.VerifyOTP(ctx, "9000000001", ledger.DefaultOTP)
	assert.ErrorIs(t, err, models.ErrInvalidOTP)

	sess, err := l.VerifyOTP(ctx, "9000000001", "777777")
	require.NoError(t, err)
	assert.True(t, sess.Active())
}
