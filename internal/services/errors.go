package services

import "errors"

// Caller-visible error kinds. Match with errors.Is; version conflicts are
// handled inside the engine and never cross this boundary.
var (
	// ErrInvalidTransfer covers malformed input: self-transfer or a
	// non-positive amount. Never retried.
	ErrInvalidTransfer = errors.New("invalid transfer")

	// ErrAccountNotFound means the sender or receiver does not exist. Terminal.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientBalance means the sender lacked funds at check time.
	// Terminal, even mid-retry.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrTransferConflictExhausted means every attempt lost the conditional
	// write race. The transfer had no effect; callers may retry with a fresh
	// request.
	ErrTransferConflictExhausted = errors.New("transfer conflict: retry attempts exhausted")

	// ErrTransferTimeout means the caller's deadline expired before the
	// transfer committed. No partial state remains.
	ErrTransferTimeout = errors.New("transfer deadline exceeded")

	// ErrTransactionNotFound means the ledger has no record with the given id.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrNegativeOpeningBalance rejects opening an account in debt.
	ErrNegativeOpeningBalance = errors.New("opening balance must not be negative")
)
