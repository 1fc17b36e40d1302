package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/ituby/GenieAI-sub000/internal/repositories"
	"github.com/ituby/GenieAI-sub000/internal/services"
	"github.com/ituby/GenieAI-sub000/utils"
)

const maxUploadBytes = 5 << 20 // 5 MB

type MediaHandler struct {
	Service  *services.GoalService
	UserRepo *repositories.UserRepository
	Storage  *utils.Storage
}

// UploadAvatar replaces the caller's profile picture.
func (h *MediaHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(int)
	if userID == 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	url, ok := h.readUpload(w, r, "avatar", "avatars")
	if !ok {
		return
	}

	if err := h.UserRepo.SetAvatarPath(r.Context(), userID, url); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"avatar_path": url})
}

// UploadRewardIcon accepts a multipart image and stores it as the reward's
// icon.
func (h *MediaHandler) UploadRewardIcon(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(int)
	if userID == 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	rewardID, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "Invalid reward ID", http.StatusBadRequest)
		return
	}

	url, ok := h.readUpload(w, r, "icon", "rewards")
	if !ok {
		return
	}

	if err := h.Service.SetRewardIcon(r.Context(), userID, rewardID, url); err != nil {
		writeGoalError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"icon_path": url})
}

// readUpload pulls one file out of the multipart form and ships it to
// object storage, writing the HTTP error itself when anything fails.
func (h *MediaHandler) readUpload(w http.ResponseWriter, r *http.Request, field, folder string) (string, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return "", false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		http.Error(w, field+" file is required", http.StatusBadRequest)
		return "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return "", false
	}

	fileName, err := utils.RandomFileName(header.Filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return "", false
	}
	url, err := h.Storage.Upload(data, fileName, folder, header.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return "", false
	}
	return url, true
}
