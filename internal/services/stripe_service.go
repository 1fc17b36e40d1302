package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/sub"
	"github.com/stripe/stripe-go/v72/webhook"

	"github.com/ituby/GenieAI-sub000/internal/models"
	"github.com/ituby/GenieAI-sub000/internal/repositories"
)

// stripeBackend is the subset of the Stripe SDK the service touches,
// extracted so tests can run without network.
type stripeBackend interface {
	NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetSubscription(id string) (*stripe.Subscription, error)
	UpdateSubscription(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	CancelSubscription(id string) (*stripe.Subscription, error)
}

type liveStripe struct{}

func (liveStripe) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}
func (liveStripe) GetSubscription(id string) (*stripe.Subscription, error) {
	return sub.Get(id, nil)
}
func (liveStripe) UpdateSubscription(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return sub.Update(id, params)
}
func (liveStripe) CancelSubscription(id string) (*stripe.Subscription, error) {
	return sub.Cancel(id, nil)
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string // app scheme path payment-success
	CancelURL     string // app scheme path payment-cancelled

	// TokenPriceCents is the unit price used for web token purchases.
	TokenPriceCents int64
	Currency        string
}

type StripeService struct {
	Backend stripeBackend
	Config  StripeConfig

	SubRepo  *repositories.SubscriptionRepository
	UserRepo *repositories.UserRepository
	Tokens   *TokenService
}

func NewStripeService(cfg StripeConfig, subRepo *repositories.SubscriptionRepository, userRepo *repositories.UserRepository, tokens *TokenService) *StripeService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.TokenPriceCents == 0 {
		cfg.TokenPriceCents = 2 // $0.02 per token
	}
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	return &StripeService{
		Backend:  liveStripe{},
		Config:   cfg,
		SubRepo:  subRepo,
		UserRepo: userRepo,
		Tokens:   tokens,
	}
}

type CheckoutSessionResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateTokenCheckout builds a one-off payment session for a token pack. The
// token amount rides in the session metadata and client reference so the
// webhook can credit the right user.
func (s *StripeService) CreateTokenCheckout(ctx context.Context, userID, amount int) (CheckoutSessionResult, error) {
	if amount < 50 {
		return CheckoutSessionResult{}, fmt.Errorf("minimum purchase is 50 tokens")
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(s.Config.SuccessURL),
		CancelURL:          stripe.String(s.Config.CancelURL),
		ClientReferenceID:  stripe.String(fmt.Sprintf("%d", userID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.Config.Currency),
				UnitAmount: stripe.Int64(s.Config.TokenPriceCents * int64(amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("%d Genie tokens", amount)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.AddMetadata("user_id", fmt.Sprintf("%d", userID))
	params.AddMetadata("tokens", fmt.Sprintf("%d", amount))
	params.Context = ctx

	sess, err := s.Backend.NewCheckoutSession(params)
	if err != nil {
		return CheckoutSessionResult{}, fmt.Errorf("create checkout session: %w", err)
	}
	return CheckoutSessionResult{SessionID: sess.ID, URL: sess.URL}, nil
}

func (s *StripeService) CreateSubscriptionCheckout(ctx context.Context, userID int, priceID string) (CheckoutSessionResult, error) {
	if priceID == "" {
		return CheckoutSessionResult{}, fmt.Errorf("priceId is required")
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:         stripe.String(s.Config.SuccessURL),
		CancelURL:          stripe.String(s.Config.CancelURL),
		ClientReferenceID:  stripe.String(fmt.Sprintf("%d", userID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
	}
	params.AddMetadata("user_id", fmt.Sprintf("%d", userID))
	params.Context = ctx

	sess, err := s.Backend.NewCheckoutSession(params)
	if err != nil {
		return CheckoutSessionResult{}, fmt.Errorf("create checkout session: %w", err)
	}
	return CheckoutSessionResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// ManageSubscription applies one of the fixed action strings to the user's
// Stripe subscription. Proration defaults to true.
func (s *StripeService) ManageSubscription(ctx context.Context, userID int, req models.ManageSubscriptionRequest) error {
	if !models.IsValidSubAction(req.Action) {
		return fmt.Errorf("unknown action %q", req.Action)
	}

	record, err := s.SubRepo.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if record.StripeSubscriptionID == "" {
		return fmt.Errorf("subscription is not managed by stripe")
	}

	proration := true
	if req.Proration != nil {
		proration = *req.Proration
	}

	switch req.Action {
	case models.SubActionUpgrade, models.SubActionDowngrade:
		if req.NewPriceID == "" {
			return fmt.Errorf("newPriceId is required for %s", req.Action)
		}
		return s.changePlan(ctx, record, req.NewPriceID, proration)

	case models.SubActionCancelImmediate:
		if _, err := s.Backend.CancelSubscription(record.StripeSubscriptionID); err != nil {
			return fmt.Errorf("cancel subscription: %w", err)
		}
		if err := s.SubRepo.SetStatus(ctx, userID, models.SubscriptionStatusCanceled, false); err != nil {
			return err
		}
		return s.UserRepo.SetPremium(ctx, userID, false)

	case models.SubActionCancelEndOfPeriod:
		params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
		if _, err := s.Backend.UpdateSubscription(record.StripeSubscriptionID, params); err != nil {
			return fmt.Errorf("schedule cancellation: %w", err)
		}
		return s.SubRepo.SetStatus(ctx, userID, models.SubscriptionStatusActive, true)

	case models.SubActionReinstate:
		params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(false)}
		if _, err := s.Backend.UpdateSubscription(record.StripeSubscriptionID, params); err != nil {
			return fmt.Errorf("reinstate subscription: %w", err)
		}
		return s.SubRepo.SetStatus(ctx, userID, models.SubscriptionStatusActive, false)
	}
	return nil
}

func (s *StripeService) changePlan(ctx context.Context, record models.Subscription, newPriceID string, proration bool) error {
	current, err := s.Backend.GetSubscription(record.StripeSubscriptionID)
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return fmt.Errorf("subscription has no items")
	}

	behavior := "create_prorations"
	if !proration {
		behavior = "none"
	}
	params := &stripe.SubscriptionParams{
		ProrationBehavior: stripe.String(behavior),
		Items: []*stripe.SubscriptionItemsParams{{
			ID:    stripe.String(current.Items.Data[0].ID),
			Price: stripe.String(newPriceID),
		}},
	}
	if _, err := s.Backend.UpdateSubscription(record.StripeSubscriptionID, params); err != nil {
		return fmt.Errorf("change plan: %w", err)
	}

	record.ProductID = newPriceID
	record.Status = models.SubscriptionStatusActive
	return s.SubRepo.Upsert(ctx, record)
}

// HandleWebhook verifies the event signature and applies
// checkout.session.completed: token credit for payment mode sessions,
// subscription activation for subscription mode ones.
func (s *StripeService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.Config.WebhookSecret)
	if err != nil {
		return fmt.Errorf("verify webhook signature: %w", err)
	}

	if event.Type != "checkout.session.completed" {
		log.Printf("stripe: ignoring event %s", event.Type)
		return nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("unmarshal checkout session: %w", err)
	}

	var userID int
	if _, err := fmt.Sscanf(sess.ClientReferenceID, "%d", &userID); err != nil || userID == 0 {
		return fmt.Errorf("missing client reference id on session %s", sess.ID)
	}

	if tokensStr, ok := sess.Metadata["tokens"]; ok && tokensStr != "" {
		var tokens int
		if _, err := fmt.Sscanf(tokensStr, "%d", &tokens); err != nil || tokens <= 0 {
			return fmt.Errorf("bad tokens metadata %q on session %s", tokensStr, sess.ID)
		}
		return s.Tokens.Credit(ctx, userID, tokens, models.TokenEntryPurchase, sess.ID)
	}

	if sess.Subscription == nil || sess.Subscription.ID == "" {
		return fmt.Errorf("session %s carries neither tokens nor a subscription", sess.ID)
	}

	expiresAt := time.Now().AddDate(0, 1, 0)
	if current, err := s.Backend.GetSubscription(sess.Subscription.ID); err == nil && current.CurrentPeriodEnd > 0 {
		expiresAt = time.Unix(current.CurrentPeriodEnd, 0)
	}

	if err := s.SubRepo.Upsert(ctx, models.Subscription{
		UserID:               userID,
		Platform:             models.PlatformWeb,
		ProductID:            "premium",
		StripeSubscriptionID: sess.Subscription.ID,
		Status:               models.SubscriptionStatusActive,
		ExpiresAt:            expiresAt,
	}); err != nil {
		return err
	}
	return s.UserRepo.SetPremium(ctx, userID, true)
}
