package services

import (
	"context"
	"strings"
	"testing"

	stripe "github.com/stripe/stripe-go/v72"
)

type fakeStripeBackend struct {
	sessions      []*stripe.CheckoutSessionParams
	updates       map[string]*stripe.SubscriptionParams
	cancellations []string
	subscription  *stripe.Subscription
}

func newFakeStripeBackend() *fakeStripeBackend {
	return &fakeStripeBackend{updates: map[string]*stripe.SubscriptionParams{}}
}

func (f *fakeStripeBackend) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.sessions = append(f.sessions, params)
	return &stripe.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/cs_test"}, nil
}

func (f *fakeStripeBackend) GetSubscription(id string) (*stripe.Subscription, error) {
	if f.subscription != nil {
		return f.subscription, nil
	}
	return &stripe.Subscription{ID: id}, nil
}

func (f *fakeStripeBackend) UpdateSubscription(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	f.updates[id] = params
	return &stripe.Subscription{ID: id}, nil
}

func (f *fakeStripeBackend) CancelSubscription(id string) (*stripe.Subscription, error) {
	f.cancellations = append(f.cancellations, id)
	return &stripe.Subscription{ID: id}, nil
}

func newTestStripeService(backend *fakeStripeBackend) *StripeService {
	s := NewStripeService(StripeConfig{
		SuccessURL: "genie://payment-success",
		CancelURL:  "genie://payment-cancelled",
	}, nil, nil, nil)
	s.Backend = backend
	return s
}

func TestCreateTokenCheckoutEnforcesMinimum(t *testing.T) {
	backend := newFakeStripeBackend()
	s := newTestStripeService(backend)

	_, err := s.CreateTokenCheckout(context.Background(), 7, 49)
	if err == nil {
		t.Fatal("expected an error below the 50-token minimum")
	}
	if !strings.Contains(err.Error(), "50") {
		t.Errorf("error should name the minimum: %v", err)
	}
	if len(backend.sessions) != 0 {
		t.Errorf("created %d sessions, want 0", len(backend.sessions))
	}
}

func TestCreateTokenCheckoutBuildsPaymentSession(t *testing.T) {
	backend := newFakeStripeBackend()
	s := newTestStripeService(backend)

	result, err := s.CreateTokenCheckout(context.Background(), 7, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SessionID != "cs_test" || result.URL == "" {
		t.Errorf("unexpected result %+v", result)
	}

	params := backend.sessions[0]
	if *params.Mode != string(stripe.CheckoutSessionModePayment) {
		t.Errorf("mode %q, want payment", *params.Mode)
	}
	if *params.ClientReferenceID != "7" {
		t.Errorf("client reference %q, want the user id", *params.ClientReferenceID)
	}
	if got := params.Metadata["tokens"]; got != "100" {
		t.Errorf("tokens metadata %q", got)
	}
	price := params.LineItems[0].PriceData
	if *price.UnitAmount != 200 { // 100 tokens at 2 cents
		t.Errorf("unit amount %d, want 200", *price.UnitAmount)
	}
}

func TestCreateSubscriptionCheckoutUsesPriceID(t *testing.T) {
	backend := newFakeStripeBackend()
	s := newTestStripeService(backend)

	if _, err := s.CreateSubscriptionCheckout(context.Background(), 7, ""); err == nil {
		t.Error("expected an error without a price id")
	}

	_, err := s.CreateSubscriptionCheckout(context.Background(), 7, "price_premium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	params := backend.sessions[0]
	if *params.Mode != string(stripe.CheckoutSessionModeSubscription) {
		t.Errorf("mode %q, want subscription", *params.Mode)
	}
	if *params.LineItems[0].Price != "price_premium" {
		t.Errorf("price %q", *params.LineItems[0].Price)
	}
}
