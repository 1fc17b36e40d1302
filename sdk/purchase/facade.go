package purchase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// MinWebTokenPurchase is the smallest token amount accepted for web
// checkout.
const MinWebTokenPurchase = 50

// Subscription management actions forwarded verbatim to the server.
const (
	ActionUpgrade           = "upgrade"
	ActionDowngrade         = "downgrade"
	ActionReinstate         = "reinstate"
	ActionCancelImmediate   = "cancel_immediate"
	ActionCancelEndOfPeriod = "cancel_end_of_period"
)

// Result is the uniform outcome shape every facade method returns. Failures
// are absorbed here; facade methods never return an error and never retry.
type Result struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId,omitempty"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ManageOptions are the optional parameters of a subscription-management
// action. Proration defaults to true when left nil.
type ManageOptions struct {
	NewPriceID string
	Proration  *bool
}

// BrowserOpener opens a checkout URL, typically in an in-app browser.
type BrowserOpener func(url string) error

// Facade presents one purchase API regardless of platform: native platforms
// go through the store-backed Client, web goes through hosted checkout.
type Facade struct {
	Platform string
	Client   *Client
	Gateway  Invoker

	// BearerToken supplies the session token for serverless calls.
	BearerToken func() string
	// OpenURL is used by OpenCheckout on web. Optional.
	OpenURL BrowserOpener
}

func (f *Facade) native() bool {
	return f.Platform == PlatformIOS || f.Platform == PlatformAndroid
}

// PurchaseTokens buys tokens. Native platforms require a productID and run
// through the store; web validates the minimum amount and requests a hosted
// checkout session instead.
func (f *Facade) PurchaseTokens(ctx context.Context, amount int, productID string) (result Result) {
	defer absorb(&result)

	if f.native() {
		if productID == "" {
			return Result{Error: "productId is required on native platforms"}
		}
		if err := f.Client.PurchaseTokens(ctx, productID); err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true}
	}

	if amount < MinWebTokenPurchase {
		return Result{Error: fmt.Sprintf("minimum purchase is %d tokens", MinWebTokenPurchase)}
	}
	return f.checkoutSession(ctx, map[string]interface{}{
		"type":   "tokens",
		"amount": amount,
	})
}

// CreateSubscription starts the premium subscription.
func (f *Facade) CreateSubscription(ctx context.Context, priceID string) (result Result) {
	defer absorb(&result)

	if f.native() {
		if err := f.Client.SubscribeToPremium(ctx, priceID); err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true}
	}

	return f.checkoutSession(ctx, map[string]interface{}{
		"type":    "subscription",
		"priceId": priceID,
	})
}

// ManageSubscription forwards an action to the server on every platform.
func (f *Facade) ManageSubscription(ctx context.Context, action string, opts ManageOptions) (result Result) {
	defer absorb(&result)

	proration := true
	if opts.Proration != nil {
		proration = *opts.Proration
	}
	body := map[string]interface{}{
		"action":    action,
		"proration": proration,
	}
	if opts.NewPriceID != "" {
		body["newPriceId"] = opts.NewPriceID
	}

	if _, err := f.invoke(ctx, "manage-subscription", body); err != nil {
		return Result{Error: err.Error()}
	}
	return Result{Success: true}
}

// OpenCheckout opens the hosted checkout URL on web. Native purchases never
// produce a URL, so this is a warning no-op there.
func (f *Facade) OpenCheckout(url string) (result Result) {
	defer absorb(&result)

	if f.native() {
		log.Printf("purchase: OpenCheckout is a no-op on %s", f.Platform)
		return Result{Success: true}
	}
	if f.OpenURL == nil {
		return Result{Error: "no browser opener configured"}
	}
	if err := f.OpenURL(url); err != nil {
		return Result{Error: err.Error()}
	}
	return Result{Success: true}
}

func (f *Facade) checkoutSession(ctx context.Context, body map[string]interface{}) Result {
	data, err := f.invoke(ctx, "create-checkout-session", body)
	if err != nil {
		return Result{Error: err.Error()}
	}

	var session struct {
		SessionID string `json:"sessionId"`
		URL       string `json:"url"`
	}
	if err := json.Unmarshal(data, &session); err != nil {
		return Result{Error: fmt.Sprintf("decode checkout session: %v", err)}
	}
	return Result{Success: true, SessionID: session.SessionID, URL: session.URL}
}

func (f *Facade) invoke(ctx context.Context, fn string, body interface{}) (json.RawMessage, error) {
	var bearer string
	if f.BearerToken != nil {
		bearer = f.BearerToken()
	}
	return f.Gateway.Invoke(ctx, fn, body, bearer)
}

// absorb converts a panic into a failed result so nothing propagates to UI
// callers.
func absorb(result *Result) {
	if r := recover(); r != nil {
		*result = Result{Error: fmt.Sprintf("%v", r)}
	}
}
