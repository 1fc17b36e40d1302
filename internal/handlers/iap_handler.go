package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ituby/GenieAI-sub000/internal/models"
	"github.com/ituby/GenieAI-sub000/internal/services"
)

type IAPHandler struct {
	Service *services.IAPService
}

// ValidateReceipt verifies a store receipt and credits the entitlement once.
// Repeat deliveries of the same transaction return already_processed.
func (h *IAPHandler) ValidateReceipt(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(int)
	if userID == 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.ValidateReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Platform == "" || req.TransactionID == "" {
		http.Error(w, "platform and transaction_id are required", http.StatusBadRequest)
		return
	}

	resp, err := h.Service.ValidateReceipt(r.Context(), userID, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(resp)
}
