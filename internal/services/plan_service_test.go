package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ituby/GenieAI-sub000/internal/models"
	"github.com/ituby/GenieAI-sub000/internal/repositories"
)

type stubCompleter struct {
	text string
	err  error
}

func (s *stubCompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	return s.text, s.err
}

// Generating a plan must leave the goal with both its 21 task rows and the
// milestone reward rows; without the latter no reward can ever unlock.
func TestGeneratePlanStoresTasksAndRewardRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	// Debit the generation cost.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT token_balance FROM users").WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"token_balance"}).AddRow(100))
	mock.ExpectExec("INSERT INTO token_ledger").
		WithArgs(1, -10, models.TokenEntryGeneration, "goal:5").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET token_balance").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Replace the plan.
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM tasks").WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	for i := 0; i < models.PlanDays; i++ {
		mock.ExpectExec("INSERT INTO tasks").
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectExec("UPDATE goals SET started_at").WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Create the milestone reward rows.
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM rewards").WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	for range models.RewardMilestones {
		mock.ExpectExec("INSERT INTO rewards").
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT id, goal_id, day_number").WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "goal_id", "day_number", "title", "description", "completed", "completed_at"}).
			AddRow(1, 5, 1, "Day one", "", false, nil))

	goalRepo := repositories.GoalRepository{DB: db}
	rewardRepo := repositories.RewardRepository{DB: db}
	tokens := &TokenService{Repo: &repositories.TokenRepository{DB: db}}

	// A failing completion degrades to the fallback template; reward creation
	// must happen either way.
	s := NewPlanService(&stubCompleter{err: errors.New("model down")}, "gpt-test",
		&goalRepo, &rewardRepo, tokens, nil, 10, 3)

	user := models.User{ID: 1, Premium: true}
	goal := models.Goal{ID: 5, UserID: 1, Title: "Run more", Category: "body"}

	tasks, err := s.GeneratePlan(context.Background(), user, goal)
	if err != nil {
		t.Fatalf("generate plan: %v", err)
	}
	if len(tasks) == 0 {
		t.Error("expected the stored tasks back")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
