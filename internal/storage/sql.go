package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bankcore/internal/models"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OpenSQL connects to MySQL. The DSN must include parseTime=true so DATETIME
// columns scan into time.Time.
func OpenSQL(dbURL string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("database is not responding: %w", err)
	}

	return db, nil
}

func RunMigrations(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id CHAR(36) PRIMARY KEY,
			balance BIGINT NOT NULL,
			version BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6),
			updated_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
			CHECK (balance >= 0)
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id CHAR(36) PRIMARY KEY,
			sender_account_id CHAR(36) NOT NULL,
			receiver_account_id CHAR(36) NOT NULL,
			amount BIGINT NOT NULL,
			created_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_sender_account_id (sender_account_id),
			INDEX idx_receiver_account_id (receiver_account_id),
			INDEX idx_created_at (created_at)
		);`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SQLStore implements Store on MySQL. Conditional writes are a single UPDATE
// guarded by the version column; the atomic unit is a database transaction.
type SQLStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSQLStore(db *sql.DB, logger zerolog.Logger) *SQLStore {
	return &SQLStore{db: db, logger: logger}
}

func (s *SQLStore) CreateAccount(ctx context.Context, initialBalance int64) (*models.Account, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts (id, balance, version, created_at, updated_at) VALUES (?, ?, 0, ?, ?)",
		id, initialBalance, now, now,
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error creating account")
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &models.Account{
		ID:        id,
		Balance:   initialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLStore) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	var account models.Account

	err := s.db.QueryRowContext(ctx,
		"SELECT id, balance, version, created_at, updated_at FROM accounts WHERE id = ?",
		accountID,
	).Scan(&account.ID, &account.Balance, &account.Version, &account.CreatedAt, &account.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Error fetching account")
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &account, nil
}

func (s *SQLStore) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var tx models.Transaction

	err := s.db.QueryRowContext(ctx,
		"SELECT id, sender_account_id, receiver_account_id, amount, created_at FROM transactions WHERE id = ?",
		transactionID,
	).Scan(&tx.ID, &tx.SenderAccountID, &tx.ReceiverAccountID, &tx.Amount, &tx.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("Error fetching transaction")
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &tx, nil
}

func (s *SQLStore) AccountTransactions(ctx context.Context, accountID string, limit, offset int) ([]*models.Transaction, error) {
	query := `
		SELECT id, sender_account_id, receiver_account_id, amount, created_at
		FROM transactions
		WHERE sender_account_id = ? OR receiver_account_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, accountID, accountID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Error fetching account transactions")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.SenderAccountID, &tx.ReceiverAccountID, &tx.Amount, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

func (s *SQLStore) Atomic(ctx context.Context, fn func(ctx context.Context, ops AtomicOps) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error starting transaction")
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &sqlAtomicOps{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Error committing transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type sqlAtomicOps struct {
	tx *sql.Tx
}

func (o *sqlAtomicOps) AdjustBalance(ctx context.Context, accountID string, delta int64, expectedVersion int64) (int64, error) {
	res, err := o.tx.ExecContext(ctx,
		`UPDATE accounts
		 SET balance = balance + ?, version = version + 1
		 WHERE id = ? AND version = ? AND balance + ? >= 0`,
		delta, accountID, expectedVersion, delta,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		// Either the account is gone or the guarded UPDATE lost the race.
		var one int
		err := o.tx.QueryRowContext(ctx, "SELECT 1 FROM accounts WHERE id = ?", accountID).Scan(&one)
		if err == sql.ErrNoRows {
			return 0, ErrAccountNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("failed to probe account: %w", err)
		}
		return 0, ErrVersionConflict
	}

	return expectedVersion + 1, nil
}

func (o *sqlAtomicOps) AppendTransaction(ctx context.Context, senderAccountID, receiverAccountID string, amount int64) (*models.Transaction, error) {
	tx := &models.Transaction{
		ID:                uuid.NewString(),
		SenderAccountID:   senderAccountID,
		ReceiverAccountID: receiverAccountID,
		Amount:            amount,
		CreatedAt:         time.Now().UTC(),
	}

	_, err := o.tx.ExecContext(ctx,
		"INSERT INTO transactions (id, sender_account_id, receiver_account_id, amount, created_at) VALUES (?, ?, ?, ?, ?)",
		tx.ID, tx.SenderAccountID, tx.ReceiverAccountID, tx.Amount, tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	return tx, nil
}
