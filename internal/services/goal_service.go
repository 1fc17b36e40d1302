package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ituby/GenieAI-sub000/internal/models"
	"github.com/ituby/GenieAI-sub000/internal/repositories"
)

// ChangePublisher receives row-change events after writes so realtime
// subscribers see them. The websocket hub in cmd implements it.
type ChangePublisher interface {
	Publish(table string, userID int, payload interface{})
}

type GoalService struct {
	GoalRepo   *repositories.GoalRepository
	RewardRepo *repositories.RewardRepository
	Publisher  ChangePublisher
	Notifier   *NotificationService
}

func (s *GoalService) CreateGoal(ctx context.Context, userID int, req models.CreateGoalRequest) (models.Goal, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Goal{}, fmt.Errorf("title is required")
	}

	goal, err := s.GoalRepo.CreateGoal(ctx, models.Goal{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.ToLower(strings.TrimSpace(req.Category)),
	})
	if err != nil {
		return models.Goal{}, err
	}

	s.publish("goals", userID, goal)
	return goal, nil
}

func (s *GoalService) GetGoal(ctx context.Context, userID, goalID int) (models.Goal, error) {
	goal, err := s.GoalRepo.GetGoalByID(ctx, goalID)
	if err != nil {
		return models.Goal{}, err
	}
	if goal.UserID != userID {
		return models.Goal{}, models.ErrForbidden
	}

	tasks, err := s.GoalRepo.ListTasksByGoal(ctx, goalID)
	if err != nil {
		return models.Goal{}, err
	}
	goal.Tasks = tasks
	applyProgress(&goal, tasks)
	return goal, nil
}

func (s *GoalService) ListGoals(ctx context.Context, userID int) ([]models.Goal, error) {
	goals, err := s.GoalRepo.ListGoalsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range goals {
		goals[i].Percent = percent(goals[i].CompletedTasks, goals[i].TotalTasks)
	}
	return goals, nil
}

func (s *GoalService) DeleteGoal(ctx context.Context, userID, goalID int) error {
	goal, err := s.GoalRepo.GetGoalByID(ctx, goalID)
	if err != nil {
		return err
	}
	if goal.UserID != userID {
		return models.ErrForbidden
	}
	if err := s.GoalRepo.DeleteGoal(ctx, goalID); err != nil {
		return err
	}
	s.publish("goals", userID, map[string]interface{}{"id": goalID, "deleted": true})
	return nil
}

// CompleteTask marks a task done, unlocks any milestone reward that just
// became complete and flips the goal to completed after day 21.
func (s *GoalService) CompleteTask(ctx context.Context, userID, goalID, taskID int) (models.Task, error) {
	goal, err := s.GoalRepo.GetGoalByID(ctx, goalID)
	if err != nil {
		return models.Task{}, err
	}
	if goal.UserID != userID {
		return models.Task{}, models.ErrForbidden
	}

	task, err := s.GoalRepo.CompleteTask(ctx, goalID, taskID, time.Now().UTC())
	if err != nil {
		return models.Task{}, err
	}

	s.publish("tasks", userID, task)
	s.checkMilestones(ctx, goal, task.DayNumber)
	return task, nil
}

func (s *GoalService) ListRewards(ctx context.Context, userID, goalID int) ([]models.Reward, error) {
	goal, err := s.GoalRepo.GetGoalByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID != userID {
		return nil, models.ErrForbidden
	}
	return s.RewardRepo.ListByGoal(ctx, goalID)
}

// SetRewardIcon attaches an uploaded icon to a reward after checking the
// reward belongs to one of the caller's goals.
func (s *GoalService) SetRewardIcon(ctx context.Context, userID, rewardID int, iconURL string) error {
	reward, err := s.RewardRepo.GetByID(ctx, rewardID)
	if err != nil {
		return err
	}
	goal, err := s.GoalRepo.GetGoalByID(ctx, reward.GoalID)
	if err != nil {
		return err
	}
	if goal.UserID != userID {
		return models.ErrForbidden
	}
	if err := s.RewardRepo.SetIconPath(ctx, rewardID, iconURL); err != nil {
		return err
	}
	s.publish("rewards", userID, map[string]interface{}{"id": rewardID, "icon_path": iconURL})
	return nil
}

func (s *GoalService) checkMilestones(ctx context.Context, goal models.Goal, completedDay int) {
	for _, day := range models.RewardMilestones {
		if completedDay > day {
			continue
		}
		done, err := s.GoalRepo.CountCompletedThroughDay(ctx, goal.ID, day)
		if err != nil {
			log.Printf("goal: milestone check for goal %d day %d: %v", goal.ID, day, err)
			return
		}
		if done < day {
			return // earlier milestones gate later ones
		}

		unlocked, err := s.RewardRepo.Unlock(ctx, goal.ID, day, time.Now().UTC())
		if err != nil {
			log.Printf("goal: unlock reward for goal %d day %d: %v", goal.ID, day, err)
			return
		}
		if unlocked {
			s.publish("rewards", goal.UserID, map[string]interface{}{"goal_id": goal.ID, "milestone_day": day})
			if s.Notifier != nil {
				s.Notifier.SendToUser(ctx, goal.UserID,
					"Reward unlocked!",
					fmt.Sprintf("Day %d of %q is complete. Check your reward.", day, goal.Title),
					fmt.Sprintf("/goal/%d/rewards", goal.ID))
			}
		}

		if day == models.PlanDays {
			if err := s.GoalRepo.UpdateGoalStatus(ctx, goal.ID, models.GoalStatusCompleted); err != nil {
				log.Printf("goal: mark goal %d completed: %v", goal.ID, err)
			}
		}
	}
}

func (s *GoalService) publish(table string, userID int, payload interface{}) {
	if s.Publisher != nil {
		s.Publisher.Publish(table, userID, payload)
	}
}

func applyProgress(goal *models.Goal, tasks []models.Task) {
	goal.TotalTasks = len(tasks)
	goal.CompletedTasks = 0
	for _, t := range tasks {
		if t.Completed {
			goal.CompletedTasks++
		}
	}
	goal.Percent = percent(goal.CompletedTasks, goal.TotalTasks)
}

func percent(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}
