package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ituby/GenieAI-sub000/internal/ai"
	"github.com/ituby/GenieAI-sub000/internal/models"
	"github.com/ituby/GenieAI-sub000/internal/repositories"
)

// PlanService turns a goal into a 21-day task plan. Generation costs tokens
// and free users are limited per day; both checks happen before the model is
// called. A failed or unparseable model response degrades to the static
// category template instead of failing the request.
type PlanService struct {
	Client     CompletionClient
	Model      string
	GoalRepo   *repositories.GoalRepository
	RewardRepo *repositories.RewardRepository
	Tokens     *TokenService
	Redis      *redis.Client

	GenerationCost int
	FreePerDay     int

	timeout time.Duration
}

func NewPlanService(client CompletionClient, model string, goalRepo *repositories.GoalRepository, rewardRepo *repositories.RewardRepository, tokens *TokenService, rdb *redis.Client, cost, freePerDay int) *PlanService {
	return &PlanService{
		Client:         client,
		Model:          model,
		GoalRepo:       goalRepo,
		RewardRepo:     rewardRepo,
		Tokens:         tokens,
		Redis:          rdb,
		GenerationCost: cost,
		FreePerDay:     freePerDay,
		timeout:        45 * time.Second,
	}
}

// GeneratePlan charges the user, generates the plan and stores it. The charge
// is refunded if storing fails; a fallback plan is NOT a failure and is kept.
func (s *PlanService) GeneratePlan(ctx context.Context, user models.User, goal models.Goal) ([]models.Task, error) {
	if goal.UserID != user.ID {
		return nil, models.ErrForbidden
	}

	if !user.Premium {
		if err := s.checkDailyLimit(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	ref := fmt.Sprintf("goal:%d", goal.ID)
	if err := s.Tokens.Debit(ctx, user.ID, s.GenerationCost, models.TokenEntryGeneration, ref); err != nil {
		return nil, err
	}

	plan := s.generate(ctx, goal)

	if err := s.GoalRepo.ReplacePlan(ctx, goal.ID, plan); err != nil {
		s.refund(ctx, user.ID, ref)
		return nil, fmt.Errorf("store plan: %w", err)
	}

	// A plan without its reward rows never unlocks milestones, so treat this
	// as a failed store too.
	if err := s.RewardRepo.CreateMilestoneRewards(ctx, goal.ID, models.RewardTitles); err != nil {
		s.refund(ctx, user.ID, ref)
		return nil, fmt.Errorf("create milestone rewards: %w", err)
	}

	return s.GoalRepo.ListTasksByGoal(ctx, goal.ID)
}

func (s *PlanService) refund(ctx context.Context, userID int, ref string) {
	if err := s.Tokens.Credit(ctx, userID, s.GenerationCost, models.TokenEntryBonus, ref+":refund"); err != nil {
		log.Printf("plan: refund after failed store for user %d: %v", userID, err)
	}
}

func (s *PlanService) generate(ctx context.Context, goal models.Goal) []ai.PlanTask {
	prompt := ai.BuildPlanPrompt(goal.Title, goal.Description, goal.Category)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.Client.Complete(genCtx, s.Model, prompt)
	if err != nil {
		log.Printf("plan: completion failed for goal %d, using fallback: %v", goal.ID, err)
		return ai.FallbackPlan(goal.Category)
	}

	tasks, err := ai.ParsePlanResponse(text)
	if err != nil {
		log.Printf("plan: unparseable response for goal %d, using fallback: %v", goal.ID, err)
		return ai.FallbackPlan(goal.Category)
	}

	return ai.NormalizePlan(tasks, goal.Category, models.PlanDays)
}

func (s *PlanService) checkDailyLimit(ctx context.Context, userID int) error {
	if s.Redis == nil || s.FreePerDay <= 0 {
		return nil
	}
	key := fmt.Sprintf("genie:genlimit:%s:%d", time.Now().UTC().Format("2006-01-02"), userID)

	count, err := s.Redis.Incr(ctx, key).Result()
	if err != nil {
		// The limiter is best effort; a redis outage must not block generation.
		log.Printf("plan: limit counter unavailable: %v", err)
		return nil
	}
	if count == 1 {
		s.Redis.Expire(ctx, key, 25*time.Hour)
	}
	if count > int64(s.FreePerDay) {
		return models.ErrGenerationLimit
	}
	return nil
}
