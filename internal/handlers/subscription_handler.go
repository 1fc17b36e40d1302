package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ituby/GenieAI-sub000/internal/services"
)

type SubscriptionHandler struct {
	Service *services.SubscriptionService
}

func (h *SubscriptionHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(int)
	if userID == 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	profile, err := h.Service.GetProfile(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(profile)
}
