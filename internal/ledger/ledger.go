// Package ledger implements the wallet core: account registration with a
// simulated OTP login, balance top-up, peer-to-peer transfer with
// insufficient-funds audit records, and KYC document submission.
//
// This is a demo. The OTP is a static code with no expiry, no rate limiting
// and no hashing; nothing here is suitable for real money movement.
package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	interfaces "github.com/paylite/wallet-ledger/internal/interfaces"
	"github.com/paylite/wallet-ledger/internal/models"
	"github.com/paylite/wallet-ledger/internal/models/events"
)

// DefaultOTP is the simulated one-time code assigned to every registration.
const DefaultOTP = "1234"

// TopicTransactionRecorded is the event topic for appended transaction records.
const TopicTransactionRecorded = "transaction_recorded"

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// TransferResult reports the outcome of a transfer. CreatedGuest is true
// when the recipient did not exist and a zero-balance account was created
// for it, which happens even if the transfer itself then fails.
type TransferResult struct {
	CreatedGuest bool               `json:"createdGuest"`
	Transaction  models.Transaction `json:"transaction"`
}

// Snapshot is a full dump of persisted state, for export and debugging.
type Snapshot struct {
	Accounts     []models.Account     `json:"users"`
	Transactions []models.Transaction `json:"txns"`
}

// Ledger is the wallet service. It owns all balance- and identity-affecting
// mutations, with a DocumentStore as sole persistence for accounts and the
// transaction log, and a BlobStore for KYC payloads.
type Ledger struct {
	store interfaces.DocumentStore
	blobs interfaces.BlobStore
	pub   interfaces.EventPublisher
	otp   string

	muMap map[string]*sync.Mutex // per-account lock
	mapMu sync.Mutex             // protects muMap itself
}

// NewLedger wires the service to its collaborators. An empty otpCode falls
// back to DefaultOTP; a nil publisher disables events.
func NewLedger(store interfaces.DocumentStore, blobs interfaces.BlobStore, pub interfaces.EventPublisher, otpCode string) *Ledger {
	if otpCode == "" {
		otpCode = DefaultOTP
	}
	return &Ledger{
		store: store,
		blobs: blobs,
		pub:   pub,
		otp:   otpCode,
		muMap: make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) getAccountLock(phone string) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[phone]; !exists {
		l.muMap[phone] = &sync.Mutex{}
	}
	return l.muMap[phone]
}

// RegisterOrRefreshOTP creates a zero-balance account for phone when none
// exists and (re)assigns the simulated OTP either way. The account is
// visible to lookups before verification completes.
func (l *Ledger) RegisterOrRefreshOTP(ctx context.Context, phone string) error {
	if !phonePattern.MatchString(phone) {
		return models.ErrInvalidPhone
	}

	mu := l.getAccountLock(phone)
	mu.Lock()
	defer mu.Unlock()

	acct, err := l.store.GetAccount(ctx, phone)
	if errors.Is(err, models.ErrAccountNotFound) {
		created := models.NewAccount(phone, time.Now())
		acct = &created
	} else if err != nil {
		return err
	}

	acct.OTP = l.otp
	return l.store.PutAccount(ctx, *acct)
}

// OTPForPhone surfaces the pending code so the demo UI can display it,
// falling back to the static code when none is pending.
func (l *Ledger) OTPForPhone(ctx context.Context, phone string) string {
	acct, err := l.store.GetAccount(ctx, phone)
	if err != nil || acct.OTP == "" {
		return l.otp
	}
	return acct.OTP
}

// VerifyOTP checks the submitted code against the account's pending OTP.
// On success it marks the account verified, clears the code so immediate
// re-verification fails, and returns a live session. Failures leave no side
// effects; every attempt is independent, with no lockout.
func (l *Ledger) VerifyOTP(ctx context.Context, phone, code string) (*Session, error) {
	mu := l.getAccountLock(phone)
	mu.Lock()
	defer mu.Unlock()

	acct, err := l.store.GetAccount(ctx, phone)
	if err != nil {
		return nil, err
	}
	if acct.OTP == "" || code != acct.OTP {
		return nil, models.ErrInvalidOTP
	}

	acct.IsVerified = true
	acct.OTP = ""
	if err := l.store.PutAccount(ctx, *acct); err != nil {
		return nil, err
	}
	return newSession(phone), nil
}

// Balance returns the session account's current balance.
func (l *Ledger) Balance(ctx context.Context, sess *Session) (decimal.Decimal, error) {
	if sess == nil || !sess.Active() {
		return decimal.Zero, models.ErrNotLoggedIn
	}
	acct, err := l.store.GetAccount(ctx, sess.Phone())
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Balance, nil
}

// Statement lists transactions where the session phone is sender or
// recipient, newest first.
func (l *Ledger) Statement(ctx context.Context, sess *Session) ([]models.Transaction, error) {
	if sess == nil || !sess.Active() {
		return nil, models.ErrNotLoggedIn
	}
	return l.store.ListTransactions(ctx, sess.Phone())
}

// TopUp credits amount to the session account and appends one TopUp record
// with From = To = phone. Amount must be positive.
func (l *Ledger) TopUp(ctx context.Context, sess *Session, amount decimal.Decimal) (models.Transaction, error) {
	if sess == nil || !sess.Active() {
		return models.Transaction{}, models.ErrNotLoggedIn
	}
	if amount.Cmp(decimal.Zero) <= 0 {
		return models.Transaction{}, models.ErrInvalidAmount
	}
	phone := sess.Phone()

	mu := l.getAccountLock(phone)
	mu.Lock()
	defer mu.Unlock()

	acct, err := l.store.GetAccount(ctx, phone)
	if err != nil {
		return models.Transaction{}, err
	}

	acct.Balance = acct.Balance.Add(amount)
	if err := l.store.PutAccount(ctx, *acct); err != nil {
		return models.Transaction{}, err
	}

	txn := l.newTransaction(models.TxnTopUp, phone, phone, amount)
	if err := l.store.AppendTransaction(ctx, txn); err != nil {
		return models.Transaction{}, err
	}
	l.publish(ctx, txn)
	return txn, nil
}

// Transfer moves amount from the session account to toPhone. Unknown
// recipients get a zero-balance guest account, created and persisted even
// when the transfer then fails for funds. An insufficient balance appends
// one TransactionIssue record carrying the attempted amount and changes no
// balances. A successful transfer applies debit, credit and the Transfer
// record as one atomic store operation.
func (l *Ledger) Transfer(ctx context.Context, sess *Session, toPhone string, amount decimal.Decimal) (TransferResult, error) {
	var res TransferResult

	if sess == nil || !sess.Active() {
		return res, models.ErrNotLoggedIn
	}
	if !phonePattern.MatchString(toPhone) {
		return res, models.ErrInvalidPhone
	}
	if amount.Cmp(decimal.Zero) <= 0 {
		return res, models.ErrInvalidAmount
	}
	from := sess.Phone()

	// Lock both accounts in phone order to avoid deadlocks. A self-transfer
	// holds a single lock.
	senderMu := l.getAccountLock(from)
	receiverMu := l.getAccountLock(toPhone)
	if from == toPhone {
		senderMu.Lock()
		defer senderMu.Unlock()
	} else if from < toPhone {
		senderMu.Lock()
		receiverMu.Lock()
		defer receiverMu.Unlock()
		defer senderMu.Unlock()
	} else {
		receiverMu.Lock()
		senderMu.Lock()
		defer senderMu.Unlock()
		defer receiverMu.Unlock()
	}

	sender, err := l.store.GetAccount(ctx, from)
	if err != nil {
		return res, err
	}

	receiver, err := l.store.GetAccount(ctx, toPhone)
	if errors.Is(err, models.ErrAccountNotFound) {
		guest := models.NewAccount(toPhone, time.Now())
		if err := l.store.PutAccount(ctx, guest); err != nil {
			return res, err
		}
		receiver = &guest
		res.CreatedGuest = true
	} else if err != nil {
		return res, err
	}

	if sender.Balance.LessThan(amount) {
		issue := l.newTransaction(models.TxnInsufficientFunds, from, toPhone, amount)
		if err := l.store.AppendTransaction(ctx, issue); err != nil {
			return res, err
		}
		l.publish(ctx, issue)
		res.Transaction = issue
		return res, models.ErrInsufficientFunds
	}

	if from == toPhone {
		// Debit and credit land on the same account; the balance is unchanged
		// but the transfer is still recorded.
		receiver = sender
	}
	sender.Balance = sender.Balance.Sub(amount)
	receiver.Balance = receiver.Balance.Add(amount)

	txn := l.newTransaction(models.TxnTransfer, from, toPhone, amount)
	if err := l.store.ApplyTransfer(ctx, *sender, *receiver, txn); err != nil {
		return res, err
	}
	l.publish(ctx, txn)
	res.Transaction = txn
	return res, nil
}

// SubmitKYC stores the payload in the blob store and then marks the account
// kyc_status submitted. The two writes are not coordinated: if the account
// update fails after the blob write, the flag stays unset.
func (l *Ledger) SubmitKYC(ctx context.Context, sess *Session, payload []byte) error {
	if sess == nil || !sess.Active() {
		return models.ErrNotLoggedIn
	}
	phone := sess.Phone()

	doc := models.KYCDocument{
		Phone:     phone,
		Payload:   payload,
		Status:    string(models.KYCSubmitted),
		UpdatedAt: time.Now(),
	}
	if err := l.blobs.Put(ctx, doc); err != nil {
		return err
	}

	mu := l.getAccountLock(phone)
	mu.Lock()
	defer mu.Unlock()

	acct, err := l.store.GetAccount(ctx, phone)
	if err != nil {
		return err
	}
	acct.KYCStatus = models.KYCSubmitted
	return l.store.PutAccount(ctx, *acct)
}

// KYCDocument fetches the session account's stored document.
func (l *Ledger) KYCDocument(ctx context.Context, sess *Session) (*models.KYCDocument, error) {
	if sess == nil || !sess.Active() {
		return nil, models.ErrNotLoggedIn
	}
	return l.blobs.Get(ctx, sess.Phone())
}

// Export dumps every account and transaction record.
func (l *Ledger) Export(ctx context.Context) (Snapshot, error) {
	accounts, err := l.store.ListAccounts(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	txns, err := l.store.ListAllTransactions(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Accounts: accounts, Transactions: txns}, nil
}

func (l *Ledger) newTransaction(txnType models.TxnType, from, to string, amount decimal.Decimal) models.Transaction {
	return models.Transaction{
		ID:        newTxnID(),
		Type:      txnType,
		From:      from,
		To:        to,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
}

// publish is best-effort: a failed publish is logged, never surfaced to the
// caller.
func (l *Ledger) publish(ctx context.Context, txn models.Transaction) {
	if l.pub == nil {
		return
	}
	evt := events.TransactionRecorded{
		EventID:       uuid.NewString(),
		TransactionID: txn.ID,
		Type:          string(txn.Type),
		From:          txn.From,
		To:            txn.To,
		Amount:        txn.Amount,
		OccurredAt:    txn.CreatedAt,
	}
	if err := l.pub.Publish(ctx, TopicTransactionRecorded, evt); err != nil {
		log.Printf("level=warn component=ledger msg=\"event publish failed\" txn=%s err=%v", txn.ID, err)
	}
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newTxnID produces a short base36 identifier. Not globally unique, the
// collision probability is non-zero but low enough for a demo log.
func newTxnID() string {
	b := make([]byte, 7)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand on supported platforms does not fail; fall back to a
		// uuid fragment if it ever does.
		return uuid.NewString()[:7]
	}
	for i := range b {
		b[i] = idAlphabet[int(b[i])%len(idAlphabet)]
	}
	return string(b)
}
