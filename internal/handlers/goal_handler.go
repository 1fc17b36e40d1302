package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ituby/GenieAI-sub000/internal/models"
	"github.com/ituby/GenieAI-sub000/internal/services"
)

type GoalHandler struct {
	Service     *services.GoalService
	PlanService *services.PlanService
	UserService *services.UserService
}

func (h *GoalHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(int)
	if userID == 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	goal, err := h.Service.CreateGoal(r.Context(), userID, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(goal)
}

func (h *GoalHandler) GetGoals(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(int)
	if userID == 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	goals, err := h.Service.ListGoals(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(goals)
}

func (h *GoalHandler) GetGoalByID(w http.ResponseWriter, r *http.Request) {
	userID, goalID, ok := h.goalParams(w, r)
	if !ok {
		return
	}

	goal, err := h.Service.GetGoal(r.Context(), userID, goalID)
	if err != nil {
		writeGoalError(w, err)
		return
	}

	json.NewEncoder(w).Encode(goal)
}

func (h *GoalHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID, goalID, ok := h.goalParams(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteGoal(r.Context(), userID, goalID); err != nil {
		writeGoalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GeneratePlan charges tokens and produces the 21-day plan for a goal.
func (h *GoalHandler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	userID, goalID, ok := h.goalParams(w, r)
	if !ok {
		return
	}

	user, err := h.UserService.GetProfile(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	goal, err := h.Service.GetGoal(r.Context(), userID, goalID)
	if err != nil {
		writeGoalError(w, err)
		return
	}

	tasks, err := h.PlanService.GeneratePlan(r.Context(), user, goal)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInsufficientTokens):
			http.Error(w, err.Error(), http.StatusPaymentRequired)
		case errors.Is(err, models.ErrGenerationLimit):
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{"goal_id": goalID, "tasks": tasks})
}

func (h *GoalHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	userID, goalID, ok := h.goalParams(w, r)
	if !ok {
		return
	}
	taskID, err := strconv.Atoi(r.URL.Query().Get(":task_id"))
	if err != nil {
		http.Error(w, "Invalid task ID", http.StatusBadRequest)
		return
	}

	task, err := h.Service.CompleteTask(r.Context(), userID, goalID, taskID)
	if err != nil {
		writeGoalError(w, err)
		return
	}

	json.NewEncoder(w).Encode(task)
}

func (h *GoalHandler) GetRewards(w http.ResponseWriter, r *http.Request) {
	userID, goalID, ok := h.goalParams(w, r)
	if !ok {
		return
	}

	rewards, err := h.Service.ListRewards(r.Context(), userID, goalID)
	if err != nil {
		writeGoalError(w, err)
		return
	}

	json.NewEncoder(w).Encode(rewards)
}

func (h *GoalHandler) goalParams(w http.ResponseWriter, r *http.Request) (userID, goalID int, ok bool) {
	userID, _ = r.Context().Value("user_id").(int)
	if userID == 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return 0, 0, false
	}
	goalID, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "Invalid goal ID", http.StatusBadRequest)
		return 0, 0, false
	}
	return userID, goalID, true
}

func writeGoalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrGoalNotFound), errors.Is(err, models.ErrTaskNotFound),
		errors.Is(err, models.ErrRewardNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
