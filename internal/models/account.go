package models

import "time"

// Account balances are stored in minor currency units (cents).
// Version advances by exactly one on every successful balance mutation
// and is the fencing token for conditional writes.
type Account struct {
	ID        string    `json:"id"`
	Balance   int64     `json:"balance"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OpenAccountRequest struct {
	InitialBalance int64 `json:"initial_balance"`
}
