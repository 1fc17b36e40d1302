package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"github.com/awa/go-iap/appstore"
	"github.com/awa/go-iap/playstore"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/ituby/GenieAI-sub000/internal/config"
	"github.com/ituby/GenieAI-sub000/internal/handlers"
	"github.com/ituby/GenieAI-sub000/internal/repositories"
	"github.com/ituby/GenieAI-sub000/internal/services"
	"github.com/ituby/GenieAI-sub000/utils"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	cfg      config.Config
	db       *sql.DB
	hub      *Hub

	userRepo   *repositories.UserRepository
	deviceRepo *repositories.DeviceTokenRepository

	notificationService *services.NotificationService
	subscriptionService *services.SubscriptionService

	userHandler         *handlers.UserHandler
	goalHandler         *handlers.GoalHandler
	iapHandler          *handlers.IAPHandler
	paymentHandler      *handlers.PaymentHandler
	tokenHandler        *handlers.TokenHandler
	notificationHandler *handlers.NotificationHandler
	subscriptionHandler *handlers.SubscriptionHandler
	mediaHandler        *handlers.MediaHandler
}

func initializeApp(db *sql.DB, rdb *redis.Client, cfg config.Config, errorLog, infoLog *log.Logger) *application {
	// Repositories
	userRepo := repositories.UserRepository{DB: db}
	goalRepo := repositories.GoalRepository{DB: db}
	rewardRepo := repositories.RewardRepository{DB: db}
	tokenRepo := repositories.TokenRepository{DB: db}
	purchaseRepo := repositories.NewPurchaseRepository(db)
	subscriptionRepo := repositories.SubscriptionRepository{DB: db}
	deviceRepo := repositories.DeviceTokenRepository{DB: db}

	hub := NewHub(infoLog)

	// Services
	fcmClient := newMessagingClient(cfg, errorLog)
	notificationService := services.NewNotificationService(fcmClient, &deviceRepo)

	userService := &services.UserService{UserRepo: &userRepo, SigningKey: cfg.JWT.SigningKey}
	goalService := &services.GoalService{
		GoalRepo:   &goalRepo,
		RewardRepo: &rewardRepo,
		Publisher:  hub,
		Notifier:   notificationService,
	}
	tokenService := &services.TokenService{Repo: &tokenRepo, Redis: rdb}
	planService := services.NewPlanService(
		services.NewOpenAIClient(nil, cfg.OpenAI.APIKey),
		cfg.OpenAI.Model,
		&goalRepo, &rewardRepo, tokenService, rdb,
		cfg.Limits.GenerationCost, cfg.Limits.FreeGenerationsPerDay,
	)
	subscriptionService := &services.SubscriptionService{
		Repo:     &subscriptionRepo,
		UserRepo: &userRepo,
		Notifier: notificationService,
	}

	tokenProducts := make(map[string]int, len(cfg.Products.Tokens))
	for _, p := range cfg.Products.Tokens {
		tokenProducts[p.ID] = p.Tokens
	}
	iapService := &services.IAPService{
		Apple: appstore.New(),
		Config: services.IAPConfig{
			AppleSharedSecret:     cfg.Apple.SharedSecret,
			AppleBundleID:         cfg.Apple.BundleID,
			GooglePackageName:     cfg.Google.PackageName,
			TokenProducts:         tokenProducts,
			SubscriptionProductID: cfg.Products.Subscription,
		},
		PurchaseRepo: purchaseRepo,
		SubRepo:      &subscriptionRepo,
		UserRepo:     &userRepo,
		Tokens:       tokenService,
		Notifier:     notificationService,
	}
	if pc := newPlaystoreClient(cfg, errorLog); pc != nil {
		iapService.Google = pc
	}

	stripeService := services.NewStripeService(services.StripeConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
	}, &subscriptionRepo, &userRepo, tokenService)

	storage := utils.NewStorage(utils.StorageConfig{
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
	})

	// Handlers
	return &application{
		errorLog: errorLog,
		infoLog:  infoLog,
		cfg:      cfg,
		db:       db,
		hub:      hub,

		userRepo:   &userRepo,
		deviceRepo: &deviceRepo,

		notificationService: notificationService,
		subscriptionService: subscriptionService,

		userHandler: &handlers.UserHandler{Service: userService},
		goalHandler: &handlers.GoalHandler{
			Service:     goalService,
			PlanService: planService,
			UserService: userService,
		},
		iapHandler:          &handlers.IAPHandler{Service: iapService},
		paymentHandler:      &handlers.PaymentHandler{Service: stripeService},
		tokenHandler:        &handlers.TokenHandler{Service: tokenService},
		notificationHandler: &handlers.NotificationHandler{Service: notificationService},
		subscriptionHandler: &handlers.SubscriptionHandler{Service: subscriptionService},
		mediaHandler:        &handlers.MediaHandler{Service: goalService, UserRepo: &userRepo, Storage: storage},
	}
}

func newMessagingClient(cfg config.Config, errorLog *log.Logger) *messaging.Client {
	if cfg.Firebase.CredentialsFile == "" {
		errorLog.Println("firebase credentials not configured, push disabled")
		return nil
	}
	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	if err != nil {
		errorLog.Printf("firebase init failed, push disabled: %v", err)
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		errorLog.Printf("firebase messaging init failed, push disabled: %v", err)
		return nil
	}
	return client
}

func newPlaystoreClient(cfg config.Config, errorLog *log.Logger) *playstore.Client {
	if cfg.Google.ServiceAccount == "" {
		errorLog.Println("google service account not configured, play verification disabled")
		return nil
	}
	key, err := os.ReadFile(cfg.Google.ServiceAccount)
	if err != nil {
		errorLog.Printf("google service account read failed, play verification disabled: %v", err)
		return nil
	}
	client, err := playstore.New(key)
	if err != nil {
		errorLog.Printf("playstore client init failed, play verification disabled: %v", err)
		return nil
	}
	return client
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Printf("Failed to open DB: %v", err)
		return nil, err
	}
	if err = db.Ping(); err != nil {
		log.Printf("Failed to ping DB: %v", err)
		return nil, err
	}
	db.SetMaxIdleConns(35)
	log.Println("Successfully connected to database")
	return db, nil
}

func addSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}
