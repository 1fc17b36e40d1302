package models

import "time"

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

// Subscription manage actions accepted by the manage endpoint. The literal
// strings are part of the client contract.
const (
	SubActionUpgrade           = "upgrade"
	SubActionDowngrade         = "downgrade"
	SubActionReinstate         = "reinstate"
	SubActionCancelImmediate   = "cancel_immediate"
	SubActionCancelEndOfPeriod = "cancel_end_of_period"
)

type Subscription struct {
	ID                   int        `json:"id"`
	UserID               int        `json:"user_id"`
	Platform             string     `json:"platform"`
	ProductID            string     `json:"product_id"`
	StripeSubscriptionID string     `json:"stripe_subscription_id,omitempty"`
	Status               string     `json:"status"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	ExpiresAt            time.Time  `json:"expires_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
}

type ManageSubscriptionRequest struct {
	Action     string `json:"action"`
	NewPriceID string `json:"newPriceId,omitempty"`
	Proration  *bool  `json:"proration,omitempty"`
}

func IsValidSubAction(action string) bool {
	switch action {
	case SubActionUpgrade, SubActionDowngrade, SubActionReinstate,
		SubActionCancelImmediate, SubActionCancelEndOfPeriod:
		return true
	}
	return false
}
