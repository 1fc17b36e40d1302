package main

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ituby/GenieAI-sub000/internal/repositories"
	"github.com/ituby/GenieAI-sub000/internal/services"
)

// The first reminder pass runs at startup, not a tick interval later;
// processes that restart daily would otherwise never send one.
func TestReminderJobRunsAtStartup(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT DISTINCT g.user_id").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	deviceRepo := repositories.DeviceTokenRepository{DB: db}
	notifier := services.NewNotificationService(nil, &deviceRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quiet := log.New(io.Discard, "", 0)
	startReminderJob(ctx, notifier, &deviceRepo, quiet, quiet)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mock.ExpectationsWereMet() == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("reminder query did not run at startup")
}
