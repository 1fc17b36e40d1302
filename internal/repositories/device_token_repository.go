package repositories

import (
	"context"
	"database/sql"

	"github.com/ituby/GenieAI-sub000/internal/models"
)

type DeviceTokenRepository struct {
	DB *sql.DB
}

func (r *DeviceTokenRepository) Save(ctx context.Context, userID int, token, platform string) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO device_tokens (user_id, token, platform, created_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform`,
		userID, token, platform)
	return err
}

func (r *DeviceTokenRepository) ListByUser(ctx context.Context, userID int) ([]models.DeviceToken, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, user_id, token, platform, created_at
FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []models.DeviceToken
	for rows.Next() {
		var t models.DeviceToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *DeviceTokenRepository) Delete(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM device_tokens WHERE token = $1`, token)
	return err
}

// UsersWithIncompleteTasks returns user ids that have an active goal with at
// least one task for the current day range not completed. Used by the daily
// reminder job.
func (r *DeviceTokenRepository) UsersWithIncompleteTasks(ctx context.Context) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT DISTINCT g.user_id
FROM goals g
JOIN tasks t ON t.goal_id = g.id
WHERE g.status = 'active'
  AND g.started_at IS NOT NULL
  AND t.day_number <= LEAST(EXTRACT(DAY FROM NOW() - g.started_at)::int + 1, 21)
  AND NOT t.completed`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
