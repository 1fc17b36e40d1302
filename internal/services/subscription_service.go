package services

import (
	"context"
	"errors"
	"time"

	"github.com/ituby/GenieAI-sub000/internal/models"
	"github.com/ituby/GenieAI-sub000/internal/repositories"
)

type SubscriptionService struct {
	Repo     *repositories.SubscriptionRepository
	UserRepo *repositories.UserRepository
	Notifier *NotificationService
}

type SubscriptionProfile struct {
	Active            bool       `json:"active"`
	Platform          string     `json:"platform,omitempty"`
	ProductID         string     `json:"product_id,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	RemainingDays     int        `json:"remaining_days"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

func (s *SubscriptionService) GetProfile(ctx context.Context, userID int) (SubscriptionProfile, error) {
	sub, err := s.Repo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrSubscriptionNotFound) {
			return SubscriptionProfile{}, nil
		}
		return SubscriptionProfile{}, err
	}

	profile := SubscriptionProfile{
		Platform:          sub.Platform,
		ProductID:         sub.ProductID,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		ExpiresAt:         &sub.ExpiresAt,
	}
	now := time.Now()
	if sub.Status == models.SubscriptionStatusActive && sub.ExpiresAt.After(now) {
		profile.Active = true
		remaining := int(sub.ExpiresAt.Sub(now).Hours() / 24)
		if remaining < 1 {
			remaining = 1
		}
		profile.RemainingDays = remaining
	}
	return profile, nil
}

// ExpireLapsed downgrades every user whose subscription period has ended.
// Run periodically from the expiry job.
func (s *SubscriptionService) ExpireLapsed(ctx context.Context, now time.Time) (int, error) {
	userIDs, err := s.Repo.ExpireLapsed(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, id := range userIDs {
		if err := s.UserRepo.SetPremium(ctx, id, false); err != nil {
			return 0, err
		}
		if s.Notifier != nil {
			s.Notifier.SendToUser(ctx, id, "Premium expired",
				"Your subscription has ended. Renew to keep unlimited generations.", "/premium")
		}
	}
	return len(userIDs), nil
}
