package models

import "time"

// PlanDays is the fixed length of a generated plan. Every goal gets exactly
// one task per day for 21 days.
const PlanDays = 21

const (
	GoalStatusActive    = "active"
	GoalStatusCompleted = "completed"
	GoalStatusAbandoned = "abandoned"
)

type Goal struct {
	ID          int        `json:"id"`
	UserID      int        `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`

	Tasks          []Task  `json:"tasks,omitempty"`
	CompletedTasks int     `json:"completed_tasks"`
	TotalTasks     int     `json:"total_tasks"`
	Percent        float64 `json:"percent"`
}

type Task struct {
	ID          int        `json:"id"`
	GoalID      int        `json:"goal_id"`
	DayNumber   int        `json:"day_number"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Reward unlocks when every task up to its milestone day is completed.
type Reward struct {
	ID           int        `json:"id"`
	GoalID       int        `json:"goal_id"`
	MilestoneDay int        `json:"milestone_day"`
	Title        string     `json:"title"`
	IconPath     *string    `json:"icon_path,omitempty"`
	Unlocked     bool       `json:"unlocked"`
	UnlockedAt   *time.Time `json:"unlocked_at,omitempty"`
}

// RewardMilestones are the days at which a reward row is created for a goal.
var RewardMilestones = []int{3, 7, 14, 21}

// RewardTitles names the default reward for each milestone day.
var RewardTitles = map[int]string{
	3:  "First streak",
	7:  "One week strong",
	14: "Halfway there",
	21: "Goal conquered",
}

type CreateGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}
