package models

import "time"

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

const (
	ProductTypeTokens       = "tokens"
	ProductTypeSubscription = "subscription"
)

// Product is a catalog entry mirrored from the store consoles. Token products
// are consumables; the subscription auto renews.
type Product struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Title    string  `json:"title"`
	Tokens   int     `json:"tokens,omitempty"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// PurchaseTransaction is one completed checkout attempt observed by a client.
// transaction_id is unique; a redelivered transaction must not be applied twice.
type PurchaseTransaction struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	Platform      string    `json:"platform"`
	ProductID     string    `json:"product_id"`
	TransactionID string    `json:"transaction_id"`
	Receipt       string    `json:"-"`
	Valid         bool      `json:"valid"`
	CreatedAt     time.Time `json:"created_at"`
}

type ValidateReceiptRequest struct {
	Platform      string `json:"platform"`
	ProductID     string `json:"product_id"`
	Receipt       string `json:"receipt"`
	TransactionID string `json:"transaction_id"`
}

type ValidateReceiptResponse struct {
	Valid            bool   `json:"valid"`
	AlreadyProcessed bool   `json:"already_processed"`
	TokensCredited   int    `json:"tokens_credited,omitempty"`
	Message          string `json:"message,omitempty"`
}
