package storage

import (
	"context"
	"errors"

	"bankcore/internal/models"
)

var (
	// ErrAccountNotFound indicates a referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrVersionConflict indicates a conditional write lost the race against a
	// concurrent mutation. Callers re-read and retry; it never reaches users.
	ErrVersionConflict = errors.New("account version conflict")
	// ErrTransactionNotFound indicates the ledger has no record with the given id.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Store is the storage contract backing the transfer engine. Point reads run
// outside any write transaction; all balance mutation goes through AtomicOps
// inside Atomic. No unconditional balance write exists anywhere.
type Store interface {
	CreateAccount(ctx context.Context, initialBalance int64) (*models.Account, error)
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	AccountTransactions(ctx context.Context, accountID string, limit, offset int) ([]*models.Transaction, error)

	// Atomic runs fn inside a single atomic unit. If fn returns an error the
	// unit aborts and none of its writes are observable. The context handed to
	// fn must be used for every operation inside the unit.
	Atomic(ctx context.Context, fn func(ctx context.Context, ops AtomicOps) error) error
}

// AtomicOps is the write surface available inside an atomic unit.
type AtomicOps interface {
	// AdjustBalance applies balance += delta only if the stored version still
	// equals expectedVersion and the resulting balance stays non-negative.
	// On success the version advances by exactly one and the new version is
	// returned. Failure modes: ErrVersionConflict, ErrAccountNotFound.
	AdjustBalance(ctx context.Context, accountID string, delta int64, expectedVersion int64) (int64, error)

	// AppendTransaction writes the immutable ledger record for a transfer.
	// It must be called in the same unit as the two balance mutations it
	// documents.
	AppendTransaction(ctx context.Context, senderAccountID, receiverAccountID string, amount int64) (*models.Transaction, error)
}
