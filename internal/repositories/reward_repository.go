package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ituby/GenieAI-sub000/internal/models"
)

type RewardRepository struct {
	DB *sql.DB
}

// CreateMilestoneRewards inserts the standard reward rows for a fresh plan.
// Existing rewards for the goal are replaced.
func (r *RewardRepository) CreateMilestoneRewards(ctx context.Context, goalID int, titles map[int]string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rewards WHERE goal_id = $1`, goalID); err != nil {
		return err
	}
	for _, day := range models.RewardMilestones {
		title := titles[day]
		if title == "" {
			title = "Milestone reached"
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO rewards (goal_id, milestone_day, title, unlocked)
VALUES ($1, $2, $3, FALSE)`, goalID, day, title); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *RewardRepository) ListByGoal(ctx context.Context, goalID int) ([]models.Reward, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, goal_id, milestone_day, title, icon_path, unlocked, unlocked_at
FROM rewards WHERE goal_id = $1 ORDER BY milestone_day`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		var rw models.Reward
		if err := rows.Scan(&rw.ID, &rw.GoalID, &rw.MilestoneDay, &rw.Title,
			&rw.IconPath, &rw.Unlocked, &rw.UnlockedAt); err != nil {
			return nil, err
		}
		rewards = append(rewards, rw)
	}
	return rewards, rows.Err()
}

// Unlock flips a reward exactly once; the first caller wins.
func (r *RewardRepository) Unlock(ctx context.Context, goalID, milestoneDay int, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
UPDATE rewards SET unlocked = TRUE, unlocked_at = $1
WHERE goal_id = $2 AND milestone_day = $3 AND NOT unlocked`,
		at, goalID, milestoneDay)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (r *RewardRepository) SetIconPath(ctx context.Context, rewardID int, path string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE rewards SET icon_path = $1 WHERE id = $2`, path, rewardID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return models.ErrRewardNotFound
	}
	return err
}

func (r *RewardRepository) GetByID(ctx context.Context, id int) (models.Reward, error) {
	var rw models.Reward
	err := r.DB.QueryRowContext(ctx, `
SELECT id, goal_id, milestone_day, title, icon_path, unlocked, unlocked_at
FROM rewards WHERE id = $1`, id).Scan(
		&rw.ID, &rw.GoalID, &rw.MilestoneDay, &rw.Title, &rw.IconPath, &rw.Unlocked, &rw.UnlockedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reward{}, models.ErrRewardNotFound
	}
	return rw, err
}
