package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ituby/GenieAI-sub000/internal/ai"
	"github.com/ituby/GenieAI-sub000/internal/models"
)

type GoalRepository struct {
	DB *sql.DB
}

func (r *GoalRepository) CreateGoal(ctx context.Context, goal models.Goal) (models.Goal, error) {
	err := r.DB.QueryRowContext(ctx, `
INSERT INTO goals (user_id, title, description, category, status, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
RETURNING id, created_at`,
		goal.UserID, goal.Title, goal.Description, goal.Category, models.GoalStatusActive,
	).Scan(&goal.ID, &goal.CreatedAt)
	if err != nil {
		return models.Goal{}, err
	}
	goal.Status = models.GoalStatusActive
	return goal, nil
}

func (r *GoalRepository) GetGoalByID(ctx context.Context, id int) (models.Goal, error) {
	var g models.Goal
	err := r.DB.QueryRowContext(ctx, `
SELECT id, user_id, title, description, category, status, started_at, created_at, updated_at
FROM goals WHERE id = $1`, id).Scan(
		&g.ID, &g.UserID, &g.Title, &g.Description, &g.Category,
		&g.Status, &g.StartedAt, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Goal{}, models.ErrGoalNotFound
	}
	return g, err
}

func (r *GoalRepository) ListGoalsByUser(ctx context.Context, userID int) ([]models.Goal, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT g.id, g.user_id, g.title, g.description, g.category, g.status, g.started_at,
       g.created_at, g.updated_at,
       COUNT(t.id) AS total,
       COUNT(t.id) FILTER (WHERE t.completed) AS done
FROM goals g
LEFT JOIN tasks t ON t.goal_id = g.id
WHERE g.user_id = $1
GROUP BY g.id
ORDER BY g.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		var g models.Goal
		if err := rows.Scan(
			&g.ID, &g.UserID, &g.Title, &g.Description, &g.Category, &g.Status,
			&g.StartedAt, &g.CreatedAt, &g.UpdatedAt, &g.TotalTasks, &g.CompletedTasks,
		); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *GoalRepository) UpdateGoalStatus(ctx context.Context, id int, status string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE goals SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return models.ErrGoalNotFound
	}
	return err
}

func (r *GoalRepository) DeleteGoal(ctx context.Context, id int) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM goals WHERE id = $1`, id)
	return err
}

// ReplacePlan replaces a goal's tasks with the generated plan in one
// transaction and stamps started_at. Re-generating a plan wipes progress.
func (r *GoalRepository) ReplacePlan(ctx context.Context, goalID int, plan []ai.PlanTask) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE goal_id = $1`, goalID); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	for _, t := range plan {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO tasks (goal_id, day_number, title, description)
VALUES ($1, $2, $3, $4)`, goalID, t.Day, t.Title, t.Description); err != nil {
			return fmt.Errorf("insert task day %d: %w", t.Day, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE goals SET started_at = NOW(), updated_at = NOW() WHERE id = $1`, goalID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *GoalRepository) ListTasksByGoal(ctx context.Context, goalID int) ([]models.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, goal_id, day_number, title, description, completed, completed_at
FROM tasks WHERE goal_id = $1 ORDER BY day_number`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.GoalID, &t.DayNumber, &t.Title,
			&t.Description, &t.Completed, &t.CompletedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTask marks a task done. The update is scoped to the goal so a task
// id from another goal never matches; completing an already completed task is
// a no-op so repeated taps from the client stay idempotent.
func (r *GoalRepository) CompleteTask(ctx context.Context, goalID, taskID int, at time.Time) (models.Task, error) {
	var t models.Task
	err := r.DB.QueryRowContext(ctx, `
UPDATE tasks SET completed = TRUE,
       completed_at = COALESCE(completed_at, $1)
WHERE id = $2 AND goal_id = $3
RETURNING id, goal_id, day_number, title, description, completed, completed_at`,
		at, taskID, goalID).Scan(&t.ID, &t.GoalID, &t.DayNumber, &t.Title,
		&t.Description, &t.Completed, &t.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, models.ErrTaskNotFound
	}
	return t, err
}

// CountCompletedThroughDay reports how many of the first `day` tasks are done.
// Used for milestone checks: a reward unlocks when the count equals the day.
func (r *GoalRepository) CountCompletedThroughDay(ctx context.Context, goalID, day int) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM tasks
WHERE goal_id = $1 AND day_number <= $2 AND completed`, goalID, day).Scan(&n)
	return n, err
}
