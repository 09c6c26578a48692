package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankcore/internal/models"
	"bankcore/internal/storage"

	"github.com/LerianStudio/lib-uncommons/v2/uncommons/backoff"
	"github.com/rs/zerolog"
)

const (
	maxTransferAttempts = 3
	retryBackoffBase    = 10 * time.Millisecond
)

// TransferService moves funds between two accounts. Correctness under
// concurrency comes entirely from the store: both balance mutations and the
// ledger append happen in one atomic unit, fenced by per-account versions.
// The engine holds no locks; losing the version race means re-read and retry.
type TransferService struct {
	store  storage.Store
	logger zerolog.Logger
}

func NewTransferService(store storage.Store, logger zerolog.Logger) *TransferService {
	return &TransferService{
		store:  store,
		logger: logger,
	}
}

type attemptOutcome int

const (
	attemptCommitted attemptOutcome = iota
	attemptConflict
	attemptTerminal
)

// Transfer debits the sender, credits the receiver and appends the ledger
// record, all atomically. It retries lost conditional-write races up to
// maxTransferAttempts with jittered backoff; every retry re-reads both
// accounts and re-checks the sender's funds. The caller's context deadline
// bounds the whole call including retries.
//
// An insufficient balance is terminal even inside the retry loop. A concurrent
// incoming credit could in principle make a later attempt succeed, but a stale
// read cannot justify waiting for funds that may never arrive, so the engine
// reports it immediately.
func (s *TransferService) Transfer(ctx context.Context, senderAccountID, receiverAccountID string, amount int64) (*models.Transaction, error) {
	if senderAccountID == receiverAccountID {
		return nil, fmt.Errorf("%w: sender and receiver must differ", ErrInvalidTransfer)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidTransfer)
	}

	for attempt := 0; attempt < maxTransferAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransferTimeout, err)
		}
		if attempt > 0 {
			delay := backoff.ExponentialWithJitter(retryBackoffBase, attempt-1)
			if err := backoff.WaitContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrTransferTimeout, ctx.Err())
			}
		}

		tx, outcome, err := s.attempt(ctx, senderAccountID, receiverAccountID, amount)
		switch outcome {
		case attemptCommitted:
			s.logger.Info().
				Str("transaction_id", tx.ID).
				Str("sender_account_id", senderAccountID).
				Str("receiver_account_id", receiverAccountID).
				Int64("amount", amount).
				Int("attempt", attempt+1).
				Msg("Transfer committed")
			return tx, nil
		case attemptConflict:
			s.logger.Debug().
				Str("sender_account_id", senderAccountID).
				Str("receiver_account_id", receiverAccountID).
				Int("attempt", attempt+1).
				Msg("Transfer attempt lost version race, retrying")
		default:
			return nil, err
		}
	}

	s.logger.Warn().
		Str("sender_account_id", senderAccountID).
		Str("receiver_account_id", receiverAccountID).
		Int64("amount", amount).
		Msg("Transfer aborted after sustained contention")
	return nil, ErrTransferConflictExhausted
}

// attempt runs one full read-check-write cycle. The tagged outcome keeps the
// retry loop honest: only attemptConflict loops, everything else propagates.
func (s *TransferService) attempt(ctx context.Context, senderAccountID, receiverAccountID string, amount int64) (*models.Transaction, attemptOutcome, error) {
	sender, err := s.store.GetAccount(ctx, senderAccountID)
	if err != nil {
		return nil, attemptTerminal, s.terminalReadError(ctx, err, senderAccountID)
	}

	if sender.Balance < amount {
		return nil, attemptTerminal, ErrInsufficientBalance
	}

	receiver, err := s.store.GetAccount(ctx, receiverAccountID)
	if err != nil {
		return nil, attemptTerminal, s.terminalReadError(ctx, err, receiverAccountID)
	}

	var committed *models.Transaction
	err = s.store.Atomic(ctx, func(ctx context.Context, ops storage.AtomicOps) error {
		if _, err := ops.AdjustBalance(ctx, senderAccountID, -amount, sender.Version); err != nil {
			return fmt.Errorf("debit sender: %w", err)
		}
		if _, err := ops.AdjustBalance(ctx, receiverAccountID, amount, receiver.Version); err != nil {
			return fmt.Errorf("credit receiver: %w", err)
		}
		tx, err := ops.AppendTransaction(ctx, senderAccountID, receiverAccountID, amount)
		if err != nil {
			return fmt.Errorf("append ledger record: %w", err)
		}
		committed = tx
		return nil
	})

	switch {
	case err == nil:
		return committed, attemptCommitted, nil
	case errors.Is(err, storage.ErrVersionConflict):
		return nil, attemptConflict, nil
	case errors.Is(err, storage.ErrAccountNotFound):
		return nil, attemptTerminal, fmt.Errorf("%w: %v", ErrAccountNotFound, err)
	case ctx.Err() != nil:
		return nil, attemptTerminal, fmt.Errorf("%w: %v", ErrTransferTimeout, ctx.Err())
	default:
		s.logger.Error().Err(err).Msg("Transfer attempt failed")
		return nil, attemptTerminal, fmt.Errorf("transfer failed: %w", err)
	}
}

func (s *TransferService) terminalReadError(ctx context.Context, err error, accountID string) error {
	if errors.Is(err, storage.ErrAccountNotFound) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrTransferTimeout, ctx.Err())
	}
	s.logger.Error().Err(err).Str("account_id", accountID).Msg("Error reading account")
	return fmt.Errorf("failed to read account: %w", err)
}

// Transaction looks up a committed ledger record by id.
func (s *TransferService) Transaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, transactionID)
	if errors.Is(err, storage.ErrTransactionNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	return tx, nil
}
