package purchase

import (
	"context"
	"testing"
)

func newWebFacade(gw *fakeInvoker) *Facade {
	return &Facade{
		Platform:    PlatformWeb,
		Gateway:     gw,
		BearerToken: func() string { return "web-token" },
	}
}

func TestWebPurchaseBelowMinimumMakesNoNetworkCall(t *testing.T) {
	gw := &fakeInvoker{}
	f := newWebFacade(gw)

	result := f.PurchaseTokens(context.Background(), 49, "")
	if result.Success {
		t.Error("purchase below the minimum must fail")
	}
	if result.Error == "" {
		t.Error("failure should carry a descriptive message")
	}
	if gw.callCount() != 0 {
		t.Errorf("made %d network calls, want 0", gw.callCount())
	}
}

func TestWebPurchaseReturnsCheckoutSession(t *testing.T) {
	gw := &fakeInvoker{response: `{"sessionId":"cs_123","url":"https://checkout.example/cs_123"}`}
	f := newWebFacade(gw)

	result := f.PurchaseTokens(context.Background(), 100, "")
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	if result.SessionID != "cs_123" {
		t.Errorf("session id %q, want cs_123", result.SessionID)
	}
	if result.URL != "https://checkout.example/cs_123" {
		t.Errorf("url %q", result.URL)
	}

	gw.mu.Lock()
	call := gw.calls[0]
	gw.mu.Unlock()
	if call.fn != "create-checkout-session" {
		t.Errorf("invoked %q, want create-checkout-session", call.fn)
	}
	body := call.body.(map[string]interface{})
	if body["type"] != "tokens" || body["amount"] != 100 {
		t.Errorf("unexpected body %v", body)
	}
}

func TestNativePurchaseRequiresProductID(t *testing.T) {
	store := newFakeStore()
	client := newTestClient(store, &fakeInvoker{})
	defer client.Close(context.Background())
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := &Facade{Platform: PlatformIOS, Client: client, Gateway: &fakeInvoker{}}

	result := f.PurchaseTokens(context.Background(), 50, "")
	if result.Success {
		t.Error("native purchase without a product id must fail")
	}

	result = f.PurchaseTokens(context.Background(), 0, "tok.50")
	if !result.Success {
		t.Fatalf("native purchase failed: %s", result.Error)
	}
	if store.requestCount() != 1 {
		t.Errorf("store received %d requests, want 1", store.requestCount())
	}
}

func TestManageSubscriptionDefaultsProrationTrue(t *testing.T) {
	gw := &fakeInvoker{}
	f := newWebFacade(gw)

	result := f.ManageSubscription(context.Background(), ActionCancelEndOfPeriod, ManageOptions{})
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}

	gw.mu.Lock()
	call := gw.calls[0]
	gw.mu.Unlock()
	if call.fn != "manage-subscription" {
		t.Errorf("invoked %q, want manage-subscription", call.fn)
	}
	body := call.body.(map[string]interface{})
	if body["action"] != "cancel_end_of_period" {
		t.Errorf("action %v, want the literal cancel_end_of_period", body["action"])
	}
	if body["proration"] != true {
		t.Errorf("proration %v, want default true", body["proration"])
	}
	if _, present := body["newPriceId"]; present {
		t.Error("newPriceId should be omitted when not given")
	}
}

func TestManageSubscriptionForwardsUpgradeOptions(t *testing.T) {
	gw := &fakeInvoker{}
	f := newWebFacade(gw)

	off := false
	result := f.ManageSubscription(context.Background(), ActionUpgrade, ManageOptions{
		NewPriceID: "price_X",
		Proration:  &off,
	})
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}

	gw.mu.Lock()
	body := gw.calls[0].body.(map[string]interface{})
	gw.mu.Unlock()
	if body["action"] != "upgrade" || body["newPriceId"] != "price_X" || body["proration"] != false {
		t.Errorf("unexpected body %v", body)
	}
}

func TestOpenCheckoutIsNoopOnNative(t *testing.T) {
	opened := false
	f := &Facade{
		Platform: PlatformIOS,
		OpenURL:  func(string) error { opened = true; return nil },
	}

	result := f.OpenCheckout("https://checkout.example/cs_123")
	if !result.Success {
		t.Fatalf("native OpenCheckout should succeed as a no-op: %s", result.Error)
	}
	if opened {
		t.Error("native platform must not open a browser")
	}
}

func TestFacadeAbsorbsPanics(t *testing.T) {
	// Client is nil; the native path panics and must come back as a result.
	f := &Facade{Platform: PlatformIOS}

	result := f.PurchaseTokens(context.Background(), 0, "tok.50")
	if result.Success {
		t.Error("panic must surface as a failed result")
	}
	if result.Error == "" {
		t.Error("failure should carry the panic message")
	}
}
