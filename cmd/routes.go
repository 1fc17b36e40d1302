package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	authMiddleware := standardMiddleware.Append(app.JWTMiddleware)

	mux := pat.New()

	// Auth
	mux.Post("/auth/sign_up", standardMiddleware.ThenFunc(app.userHandler.SignUp))
	mux.Post("/auth/sign_in", standardMiddleware.ThenFunc(app.userHandler.SignIn))
	mux.Post("/auth/refresh", standardMiddleware.ThenFunc(app.userHandler.Refresh))
	mux.Get("/profile", authMiddleware.ThenFunc(app.userHandler.GetProfile))
	mux.Put("/profile", authMiddleware.ThenFunc(app.userHandler.UpdateProfile))
	mux.Post("/profile/avatar", authMiddleware.ThenFunc(app.mediaHandler.UploadAvatar))

	// Goals and plans
	mux.Post("/goals", authMiddleware.ThenFunc(app.goalHandler.CreateGoal))
	mux.Get("/goals", authMiddleware.ThenFunc(app.goalHandler.GetGoals))
	mux.Get("/goals/:id", authMiddleware.ThenFunc(app.goalHandler.GetGoalByID))
	mux.Del("/goals/:id", authMiddleware.ThenFunc(app.goalHandler.DeleteGoal))
	mux.Post("/goals/:id/plan", authMiddleware.ThenFunc(app.goalHandler.GeneratePlan))
	mux.Post("/goals/:id/tasks/:task_id/complete", authMiddleware.ThenFunc(app.goalHandler.CompleteTask))
	mux.Get("/goals/:id/rewards", authMiddleware.ThenFunc(app.goalHandler.GetRewards))
	mux.Post("/rewards/:id/icon", authMiddleware.ThenFunc(app.mediaHandler.UploadRewardIcon))

	// Tokens
	mux.Get("/tokens/balance", authMiddleware.ThenFunc(app.tokenHandler.GetBalance))
	mux.Get("/tokens/history", authMiddleware.ThenFunc(app.tokenHandler.GetHistory))

	// Purchases
	mux.Post("/iap/validate", authMiddleware.ThenFunc(app.iapHandler.ValidateReceipt))
	mux.Post("/payments/checkout-session", authMiddleware.ThenFunc(app.paymentHandler.CreateCheckoutSession))
	mux.Post("/payments/manage-subscription", authMiddleware.ThenFunc(app.paymentHandler.ManageSubscription))
	mux.Post("/payments/webhook", standardMiddleware.ThenFunc(app.paymentHandler.Webhook))
	mux.Get("/subscription", authMiddleware.ThenFunc(app.subscriptionHandler.GetProfile))

	// Notifications
	mux.Post("/devices", authMiddleware.ThenFunc(app.notificationHandler.RegisterDevice))
	mux.Del("/devices", authMiddleware.ThenFunc(app.notificationHandler.UnregisterDevice))

	// Realtime
	mux.Get("/realtime", authMiddleware.ThenFunc(app.realtimeHandler))

	return mux
}
