// Package store holds the client-side state caches: the goal list with
// locally derived progress, and the auth session.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/ituby/GenieAI-sub000/sdk/gateway"
)

type Task struct {
	ID        int    `json:"id"`
	GoalID    int    `json:"goal_id"`
	DayNumber int    `json:"day_number"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type Goal struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      string `json:"status"`

	Tasks          []Task  `json:"tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	TotalTasks     int     `json:"total_tasks"`
	Percent        float64 `json:"percent"`
}

// GoalStore caches the user's goals and re-derives completion aggregates
// locally, so screens render progress without extra round trips.
type GoalStore struct {
	gw     *gateway.Client
	userID int

	mu        sync.RWMutex
	goals     []Goal
	fetchedAt time.Time
}

func NewGoalStore(gw *gateway.Client, userID int) *GoalStore {
	return &GoalStore{gw: gw, userID: userID}
}

// Refresh reloads goals and tasks through the gateway and recomputes
// aggregates.
func (s *GoalStore) Refresh(ctx context.Context) error {
	var goals []Goal
	err := s.gw.From("goals").
		Select("*").
		Eq("user_id", s.userID).
		Order("created_at", false).
		Execute(ctx, &goals)
	if err != nil {
		return err
	}

	for i := range goals {
		var tasks []Task
		err := s.gw.From("tasks").
			Select("*").
			Eq("goal_id", goals[i].ID).
			Order("day_number", true).
			Execute(ctx, &tasks)
		if err != nil {
			return err
		}
		goals[i].Tasks = tasks
		deriveProgress(&goals[i])
	}

	s.mu.Lock()
	s.goals = goals
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// Goals returns the cached list. The slice is a copy; callers may not see
// later refreshes through it.
func (s *GoalStore) Goals() []Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Goal, len(s.goals))
	copy(out, s.goals)
	return out
}

func (s *GoalStore) Fresh(maxAge time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.fetchedAt.IsZero() && time.Since(s.fetchedAt) < maxAge
}

func (s *GoalStore) Invalidate() {
	s.mu.Lock()
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

// BindRealtime invalidates the cache whenever the server reports a task or
// goal row change. Runs until ctx is cancelled.
func (s *GoalStore) BindRealtime(ctx context.Context, table string) error {
	events, err := s.gw.Subscribe(ctx, table)
	if err != nil {
		return err
	}
	go func() {
		for range events {
			s.Invalidate()
		}
	}()
	return nil
}

func deriveProgress(goal *Goal) {
	goal.TotalTasks = len(goal.Tasks)
	goal.CompletedTasks = 0
	for _, t := range goal.Tasks {
		if t.Completed {
			goal.CompletedTasks++
		}
	}
	if goal.TotalTasks > 0 {
		goal.Percent = float64(goal.CompletedTasks) / float64(goal.TotalTasks) * 100
	} else {
		goal.Percent = 0
	}
}
