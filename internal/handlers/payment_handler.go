package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ituby/GenieAI-sub000/internal/models"
	"github.com/ituby/GenieAI-sub000/internal/services"
)

type PaymentHandler struct {
	Service *services.StripeService
}

type checkoutRequest struct {
	Type    string `json:"type"`
	Amount  int    `json:"amount"`
	PriceID string `json:"priceId"`
}

// CreateCheckoutSession starts a Stripe Checkout flow for either a one-time
// token purchase or a premium subscription.
func (h *PaymentHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(int)
	if userID == 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var (
		result services.CheckoutSessionResult
		err    error
	)
	switch req.Type {
	case "subscription":
		result, err = h.Service.CreateSubscriptionCheckout(r.Context(), userID, req.PriceID)
	default:
		result, err = h.Service.CreateTokenCheckout(r.Context(), userID, req.Amount)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	json.NewEncoder(w).Encode(result)
}

func (h *PaymentHandler) ManageSubscription(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(int)
	if userID == 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.ManageSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !models.IsValidSubAction(req.Action) {
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	if err := h.Service.ManageSubscription(r.Context(), userID, req); err != nil {
		if errors.Is(err, models.ErrSubscriptionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// Webhook receives Stripe events. The raw body is needed for signature
// verification, so it is read before any decoding.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	if err := h.Service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
}
