package services

import (
	"context"
	"errors"
	"fmt"

	"bankcore/internal/models"
	"bankcore/internal/storage"

	"github.com/rs/zerolog"
)

// AccountService covers account opening and read-side queries. Balance
// mutation is deliberately absent here; the transfer engine owns it.
type AccountService struct {
	store  storage.Store
	logger zerolog.Logger
}

func NewAccountService(store storage.Store, logger zerolog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

func (s *AccountService) Open(ctx context.Context, initialBalance int64) (*models.Account, error) {
	if initialBalance < 0 {
		return nil, ErrNegativeOpeningBalance
	}

	account, err := s.store.CreateAccount(ctx, initialBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to open account: %w", err)
	}

	s.logger.Info().
		Str("account_id", account.ID).
		Int64("initial_balance", initialBalance).
		Msg("Account opened")
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	return account, nil
}

// Transactions returns the account's transfer history, newest first.
func (s *AccountService) Transactions(ctx context.Context, accountID string, limit, offset int) ([]*models.Transaction, error) {
	if _, err := s.Get(ctx, accountID); err != nil {
		return nil, err
	}

	transactions, err := s.store.AccountTransactions(ctx, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account transactions: %w", err)
	}
	return transactions, nil
}
