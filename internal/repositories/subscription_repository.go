package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ituby/GenieAI-sub000/internal/models"
)

type SubscriptionRepository struct {
	DB *sql.DB
}

// Upsert keeps one subscription row per user. Renewals and plan changes
// update the row in place.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub models.Subscription) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO subscriptions (user_id, platform, product_id, stripe_subscription_id, status, cancel_at_period_end, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (user_id) DO UPDATE SET
    platform = EXCLUDED.platform,
    product_id = EXCLUDED.product_id,
    stripe_subscription_id = EXCLUDED.stripe_subscription_id,
    status = EXCLUDED.status,
    cancel_at_period_end = EXCLUDED.cancel_at_period_end,
    expires_at = EXCLUDED.expires_at,
    updated_at = NOW()`,
		sub.UserID, sub.Platform, sub.ProductID, sub.StripeSubscriptionID,
		sub.Status, sub.CancelAtPeriodEnd, sub.ExpiresAt)
	return err
}

func (r *SubscriptionRepository) GetByUser(ctx context.Context, userID int) (models.Subscription, error) {
	var s models.Subscription
	err := r.DB.QueryRowContext(ctx, `
SELECT id, user_id, platform, product_id, COALESCE(stripe_subscription_id, ''), status, cancel_at_period_end, expires_at, created_at, updated_at
FROM subscriptions WHERE user_id = $1`, userID).Scan(
		&s.ID, &s.UserID, &s.Platform, &s.ProductID, &s.StripeSubscriptionID,
		&s.Status, &s.CancelAtPeriodEnd, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscription{}, models.ErrSubscriptionNotFound
	}
	return s, err
}

func (r *SubscriptionRepository) SetStatus(ctx context.Context, userID int, status string, cancelAtPeriodEnd bool) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE subscriptions SET status = $1, cancel_at_period_end = $2, updated_at = NOW()
WHERE user_id = $3`, status, cancelAtPeriodEnd, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return models.ErrSubscriptionNotFound
	}
	return err
}

// ExpireLapsed flips active rows whose period ended and returns the affected
// user ids so the caller can downgrade them.
func (r *SubscriptionRepository) ExpireLapsed(ctx context.Context, now time.Time) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx, `
UPDATE subscriptions SET status = $1, updated_at = NOW()
WHERE status = $2 AND expires_at < $3
RETURNING user_id`, models.SubscriptionStatusExpired, models.SubscriptionStatusActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}
