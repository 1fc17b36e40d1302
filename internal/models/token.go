package models

import "time"

const (
	TokenEntryPurchase   = "purchase"
	TokenEntryGeneration = "generation"
	TokenEntryBonus      = "bonus"
)

// TokenLedgerEntry records every balance mutation. The balance column on users
// is derived; the ledger is the source of truth.
type TokenLedgerEntry struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Amount    int       `json:"amount"` // positive credit, negative debit
	Kind      string    `json:"kind"`
	Reference string    `json:"reference,omitempty"` // transaction id, goal id, ...
	CreatedAt time.Time `json:"created_at"`
}

type TokenBalance struct {
	UserID  int `json:"user_id"`
	Balance int `json:"balance"`
}
