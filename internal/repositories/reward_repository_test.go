package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ituby/GenieAI-sub000/internal/models"
)

func TestCreateMilestoneRewardsInsertsEveryMilestone(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM rewards").WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	for _, day := range models.RewardMilestones {
		mock.ExpectExec("INSERT INTO rewards").WithArgs(5, day, models.RewardTitles[day]).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	r := RewardRepository{DB: db}
	if err := r.CreateMilestoneRewards(context.Background(), 5, models.RewardTitles); err != nil {
		t.Fatalf("create rewards: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUnlockFlipsRewardOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE rewards SET unlocked").WithArgs(sqlmock.AnyArg(), 5, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE rewards SET unlocked").WithArgs(sqlmock.AnyArg(), 5, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := RewardRepository{DB: db}

	unlocked, err := r.Unlock(context.Background(), 5, 7, time.Now())
	if err != nil {
		t.Fatalf("first unlock: %v", err)
	}
	if !unlocked {
		t.Error("first unlock should flip the reward")
	}

	unlocked, err = r.Unlock(context.Background(), 5, 7, time.Now())
	if err != nil {
		t.Fatalf("second unlock: %v", err)
	}
	if unlocked {
		t.Error("an already unlocked reward must not flip again")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
