package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ituby/GenieAI-sub000/internal/models"
)

var taskColumns = []string{"id", "goal_id", "day_number", "title", "description", "completed", "completed_at"}

func TestCompleteTaskScopedToGoal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("UPDATE tasks SET completed").WithArgs(sqlmock.AnyArg(), 10, 5).
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(10, 5, 3, "Run 2km", "", true, now))

	r := GoalRepository{DB: db}
	task, err := r.CompleteTask(context.Background(), 5, 10, now)
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if task.GoalID != 5 || !task.Completed {
		t.Errorf("unexpected task %+v", task)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestCompleteTaskIgnoresForeignGoal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	// The task belongs to goal 5; the caller claims goal 6. The scoped update
	// matches nothing, so the row stays untouched and no other statement runs.
	mock.ExpectQuery("UPDATE tasks SET completed").WithArgs(sqlmock.AnyArg(), 10, 6).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	r := GoalRepository{DB: db}
	if _, err := r.CompleteTask(context.Background(), 6, 10, time.Now()); !errors.Is(err, models.ErrTaskNotFound) {
		t.Fatalf("got %v, want ErrTaskNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
