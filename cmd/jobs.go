package main

import (
	"context"
	"log"
	"time"

	"github.com/ituby/GenieAI-sub000/internal/repositories"
	"github.com/ituby/GenieAI-sub000/internal/services"
)

const jobTimeout = 1 * time.Minute

// startReminderJob pushes a daily nudge to users with unfinished tasks for
// the current plan day.
func startReminderJob(ctx context.Context, notifier *services.NotificationService, deviceRepo *repositories.DeviceTokenRepository, infoLog, errorLog *log.Logger) {
	if notifier == nil || deviceRepo == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		runOnce := func() {
			runCtx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()

			userIDs, err := deviceRepo.UsersWithIncompleteTasks(runCtx)
			if err != nil {
				errorLog.Printf("reminder job: load users with incomplete tasks: %v", err)
				return
			}
			for _, userID := range userIDs {
				notifier.SendToUser(runCtx, userID, "Keep your streak going",
					"You still have tasks open for today. A few minutes is all it takes.", "/today")
			}
			if len(userIDs) > 0 {
				infoLog.Printf("reminder job: nudged %d users", len(userIDs))
			}
		}

		runOnce()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce()
			}
		}
	}()
}

// startSubscriptionExpiry downgrades users whose subscription lapsed without
// a renewal event reaching us.
func startSubscriptionExpiry(ctx context.Context, subs *services.SubscriptionService, infoLog, errorLog *log.Logger) {
	if subs == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		runOnce := func() {
			runCtx, cancel := context.WithTimeout(ctx, jobTimeout)
			processed, err := subs.ExpireLapsed(runCtx, time.Now().UTC())
			cancel()
			if err != nil {
				errorLog.Printf("subscription expiry: %v", err)
			} else if processed > 0 {
				infoLog.Printf("subscription expiry: downgraded %d users", processed)
			}
		}

		runOnce()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce()
			}
		}
	}()
}
