package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	interfaces "github.com/paylite/wallet-ledger/internal/interfaces"
	"github.com/paylite/wallet-ledger/internal/models"
)

// PostgresDocumentStore persists accounts and the transaction log in
// postgres. Transfers are applied inside one SQL transaction.
type PostgresDocumentStore struct {
	db *sql.DB
}

func NewPostgresDocumentStore(db *sql.DB) *PostgresDocumentStore {
	return &PostgresDocumentStore{db: db}
}

func (p *PostgresDocumentStore) GetAccount(ctx context.Context, phone string) (*models.Account, error) {
	const query = `SELECT phone, is_verified, balance, kyc_status, otp, created_at
	FROM accounts WHERE phone = $1`

	acct, err := scanAccount(p.db.QueryRowContext(ctx, query, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrAccountNotFound
		}
		return nil, err
	}
	return acct, nil
}

func (p *PostgresDocumentStore) PutAccount(ctx context.Context, acct models.Account) error {
	_, err := p.db.ExecContext(ctx, upsertAccountQuery,
		acct.Phone, acct.IsVerified, acct.Balance, string(acct.KYCStatus), acct.OTP, acct.CreatedAt)
	return err
}

func (p *PostgresDocumentStore) AppendTransaction(ctx context.Context, txn models.Transaction) error {
	_, err := p.db.ExecContext(ctx, insertTransactionQuery,
		txn.ID, string(txn.Type), txn.From, txn.To, txn.Amount, txn.CreatedAt)
	return err
}

func (p *PostgresDocumentStore) ListTransactions(ctx context.Context, phone string) ([]models.Transaction, error) {
	const query = `SELECT id, type, from_phone, to_phone, amount, created_at
	FROM transactions
	WHERE from_phone = $1 OR to_phone = $1
	ORDER BY created_at DESC, seq DESC`

	rows, err := p.db.QueryContext(ctx, query, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	var txns []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		var txnType string
		if err := rows.Scan(&txn.ID, &txnType, &txn.From, &txn.To, &txn.Amount, &txn.CreatedAt); err != nil {
			return nil, err
		}
		txn.Type = models.TxnType(txnType)
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func (p *PostgresDocumentStore) ListAllTransactions(ctx context.Context) ([]models.Transaction, error) {
	const query = `SELECT id, type, from_phone, to_phone, amount, created_at
	FROM transactions
	ORDER BY created_at DESC, seq DESC`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (p *PostgresDocumentStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	const query = `SELECT phone, is_verified, balance, kyc_status, otp, created_at FROM accounts`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acct)
	}
	return accounts, rows.Err()
}

// ApplyTransfer upserts both accounts and appends the transfer record inside
// a single SQL transaction, so a crash mid-transfer cannot leave funds
// created or destroyed.
func (p *PostgresDocumentStore) ApplyTransfer(ctx context.Context, sender, receiver models.Account, txn models.Transaction) error {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	for _, acct := range []models.Account{sender, receiver} {
		if _, err := dbTx.ExecContext(ctx, upsertAccountQuery,
			acct.Phone, acct.IsVerified, acct.Balance, string(acct.KYCStatus), acct.OTP, acct.CreatedAt); err != nil {
			return err
		}
	}

	if _, err := dbTx.ExecContext(ctx, insertTransactionQuery,
		txn.ID, string(txn.Type), txn.From, txn.To, txn.Amount, txn.CreatedAt); err != nil {
		return err
	}

	return dbTx.Commit()
}

// RunMigrations executes the schema file shipped with the binary.
func (p *PostgresDocumentStore) RunMigrations(ctx context.Context) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	migrationPath := filepath.Join(wd, "migrations", "001_init.sql")
	migration, err := os.ReadFile(migrationPath)
	if err != nil {
		return fmt.Errorf("failed to read migration file at %s: %w", migrationPath, err)
	}

	if _, err := p.db.ExecContext(ctx, string(migration)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	return nil
}

const upsertAccountQuery = `INSERT INTO accounts (phone, is_verified, balance, kyc_status, otp, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (phone) DO UPDATE SET
		is_verified = EXCLUDED.is_verified,
		balance = EXCLUDED.balance,
		kyc_status = EXCLUDED.kyc_status,
		otp = EXCLUDED.otp`

const insertTransactionQuery = `INSERT INTO transactions (id, type, from_phone, to_phone, amount, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var acct models.Account
	var kycStatus string
	var otp sql.NullString
	if err := row.Scan(&acct.Phone, &acct.IsVerified, &acct.Balance, &kycStatus, &otp, &acct.CreatedAt); err != nil {
		return nil, err
	}
	acct.KYCStatus = models.KYCStatus(kycStatus)
	acct.OTP = otp.String
	return &acct, nil
}

var _ interfaces.DocumentStore = (*PostgresDocumentStore)(nil)
