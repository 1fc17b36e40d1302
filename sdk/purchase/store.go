// Package purchase reconciles in-app purchases: it mediates between UI
// purchase intents and the native store SDK, validates receipts server-side
// and guarantees every delivered transaction is finalized so the platform's
// pending queue never blocks.
package purchase

import (
	"context"
	"fmt"
)

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

type ProductType string

const (
	ProductTypeConsumable   ProductType = "inapp"
	ProductTypeSubscription ProductType = "subs"
)

// Product is a catalog entry as the store reports it. Immutable for the
// session once loaded.
type Product struct {
	ID       string
	Title    string
	Price    string
	Currency string
}

// PurchaseRequest carries the product id under both platform field names;
// the store reads whichever it expects.
type PurchaseRequest struct {
	SKU       string `json:"sku"`
	ProductID string `json:"productId"`
}

// RawPurchase is a completed transaction as delivered by the store's update
// listener. Field names differ per platform: iOS populates
// TransactionReceipt, Android populates PurchaseToken; the product id may
// arrive under either ProductID or SKU.
type RawPurchase struct {
	ProductID          string `json:"productId"`
	SKU                string `json:"sku"`
	TransactionID      string `json:"transactionId"`
	TransactionReceipt string `json:"transactionReceipt"`
	PurchaseToken      string `json:"purchaseToken"`
}

// StoreConnection is the slice of the native in-app-purchase SDK this
// package depends on. Completed purchases arrive on PurchaseUpdates, never
// as return values of RequestPurchase.
type StoreConnection interface {
	InitConnection(ctx context.Context) error
	EndConnection(ctx context.Context) error
	FetchProducts(ctx context.Context, skus []string, typ ProductType) ([]Product, error)
	RequestPurchase(ctx context.Context, req PurchaseRequest, typ ProductType) error
	FinishTransaction(ctx context.Context, p RawPurchase, isConsumable bool) error
	PurchaseUpdates() <-chan RawPurchase
	PurchaseErrors() <-chan error
}

// PurchaseEvent is the canonical shape of a delivered transaction after
// platform normalization.
type PurchaseEvent struct {
	ProductID     string
	Receipt       string
	TransactionID string
}

// normalizePurchaseEvent maps the platform-specific raw purchase fields onto
// one canonical shape, isolating the per-platform branching from the
// reconciliation logic.
func normalizePurchaseEvent(raw RawPurchase, platform string) (PurchaseEvent, error) {
	ev := PurchaseEvent{
		ProductID:     raw.ProductID,
		TransactionID: raw.TransactionID,
	}
	if ev.ProductID == "" {
		ev.ProductID = raw.SKU
	}

	switch platform {
	case PlatformAndroid:
		ev.Receipt = raw.PurchaseToken
	default:
		ev.Receipt = raw.TransactionReceipt
		if ev.Receipt == "" {
			ev.Receipt = raw.PurchaseToken
		}
	}

	if ev.ProductID == "" || ev.TransactionID == "" {
		return PurchaseEvent{}, fmt.Errorf("purchase event missing product or transaction id")
	}
	return ev, nil
}
