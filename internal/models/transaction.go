package models

import "time"

// Transaction is the immutable ledger record of one completed transfer.
// It exists if and only if both balance mutations it documents committed.
type Transaction struct {
	ID                string    `json:"id"`
	SenderAccountID   string    `json:"sender_account_id"`
	ReceiverAccountID string    `json:"receiver_account_id"`
	Amount            int64     `json:"amount"`
	CreatedAt         time.Time `json:"created_at"`
}

type TransferRequest struct {
	SenderAccountID   string `json:"sender_account_id"`
	ReceiverAccountID string `json:"receiver_account_id"`
	Amount            int64  `json:"amount"`
}
