package storage

import (
	"context"
	"sync"
	"time"

	"bankcore/internal/models"

	"github.com/google/uuid"
)

type memoryAccount struct {
	balance   int64
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// MemoryStore is an in-process Store used by tests and as a local development
// backend. A single mutex guards the whole store; atomicity comes from a
// journal that restores touched accounts when the unit fails.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*memoryAccount
	ledger   []*models.Transaction
	byID     map[string]*models.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*memoryAccount),
		byID:     make(map[string]*models.Transaction),
	}
}

func (s *MemoryStore) CreateAccount(ctx context.Context, initialBalance int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	id := uuid.NewString()
	s.accounts[id] = &memoryAccount{
		balance:   initialBalance,
		createdAt: now,
		updatedAt: now,
	}
	return &models.Account{
		ID:        id,
		Balance:   initialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &models.Account{
		ID:        accountID,
		Balance:   acc.balance,
		Version:   acc.version,
		CreatedAt: acc.createdAt,
		UpdatedAt: acc.updatedAt,
	}, nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.byID[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *MemoryStore) AccountTransactions(ctx context.Context, accountID string, limit, offset int) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// newest first, matching the SQL store's ORDER BY created_at DESC
	var matched []*models.Transaction
	for i := len(s.ledger) - 1; i >= 0; i-- {
		tx := s.ledger[i]
		if tx.SenderAccountID == accountID || tx.ReceiverAccountID == accountID {
			matched = append(matched, tx)
		}
	}

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	out := make([]*models.Transaction, len(matched))
	for i, tx := range matched {
		cp := *tx
		out[i] = &cp
	}
	return out, nil
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, ops AtomicOps) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops := &memoryAtomicOps{store: s, journal: make(map[string]memoryAccount)}
	if err := fn(ctx, ops); err != nil {
		ops.rollback()
		return err
	}
	ops.commit()
	return nil
}

// memoryAtomicOps mutates accounts in place under the store lock and keeps the
// pre-image of every touched account so a failed unit can be undone. Ledger
// appends are staged and only become visible on commit.
type memoryAtomicOps struct {
	store   *MemoryStore
	journal map[string]memoryAccount
	staged  []*models.Transaction
}

func (o *memoryAtomicOps) AdjustBalance(ctx context.Context, accountID string, delta int64, expectedVersion int64) (int64, error) {
	acc, ok := o.store.accounts[accountID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	if acc.version != expectedVersion {
		return 0, ErrVersionConflict
	}
	if acc.balance+delta < 0 {
		// A matching version with insufficient funds means the caller's read
		// was stale; report it as a conflict so the caller re-reads.
		return 0, ErrVersionConflict
	}

	if _, touched := o.journal[accountID]; !touched {
		o.journal[accountID] = *acc
	}

	acc.balance += delta
	acc.version++
	acc.updatedAt = time.Now().UTC()
	return acc.version, nil
}

func (o *memoryAtomicOps) AppendTransaction(ctx context.Context, senderAccountID, receiverAccountID string, amount int64) (*models.Transaction, error) {
	tx := &models.Transaction{
		ID:                uuid.NewString(),
		SenderAccountID:   senderAccountID,
		ReceiverAccountID: receiverAccountID,
		Amount:            amount,
		CreatedAt:         time.Now().UTC(),
	}
	o.staged = append(o.staged, tx)
	cp := *tx
	return &cp, nil
}

func (o *memoryAtomicOps) rollback() {
	for id, prev := range o.journal {
		restored := prev
		o.store.accounts[id] = &restored
	}
	o.staged = nil
}

func (o *memoryAtomicOps) commit() {
	for _, tx := range o.staged {
		o.store.ledger = append(o.store.ledger, tx)
		o.store.byID[tx.ID] = tx
	}
}
