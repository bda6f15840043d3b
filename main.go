package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"farcaster-rewards-system/handlers"
	"farcaster-rewards-system/middleware"
	"farcaster-rewards-system/models"
	"farcaster-rewards-system/services"
	"farcaster-rewards-system/utils"
	"farcaster-rewards-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB — artwork uploads only
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	// TranslateError turns driver-level unique violations into
	// gorm.ErrDuplicatedKey, which the referral and task services match on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.RewardState{},
		&models.RewardEvent{},
		&models.Referral{},
		&models.SocialTask{},
		&models.TaskCompletion{},
		&models.MintTransaction{},
		&models.TierSupply{},
		&models.ProfileMirror{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	var cache *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL:", err)
		}
		cache = redis.NewClient(opts)
	} else {
		log.Println("⚠️  REDIS_URL not set — leaderboard cache disabled")
	}

	chainRelayURL := os.Getenv("CHAIN_RELAY_URL")
	if chainRelayURL == "" {
		log.Fatal("CHAIN_RELAY_URL environment variable not set")
	}
	chainClient := services.NewChainClient(chainRelayURL, os.Getenv("CHAIN_RELAY_TOKEN"))

	identityURL := os.Getenv("IDENTITY_SERVICE_URL")
	if identityURL == "" {
		log.Fatal("IDENTITY_SERVICE_URL environment variable not set")
	}
	identityToken := os.Getenv("IDENTITY_SERVICE_TOKEN")
	if identityToken == "" {
		log.Fatal("IDENTITY_SERVICE_TOKEN environment variable not set")
	}
	identityClient := services.NewIdentityClient(identityURL, identityToken)

	catalogService := services.NewCatalogService(chainClient)
	rewardsService := services.NewRewardsService(db, catalogService, cache)
	mintService := services.NewMintService(db, rewardsService, chainClient)
	referralService := services.NewReferralService(db, rewardsService)
	taskService := services.NewTaskService(db, rewardsService)

	if err := taskService.SeedDefaultTasks(); err != nil {
		log.Fatal("failed to seed default tasks:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// First catalog refresh is best-effort: the built-in defaults serve until
	// the relay answers.
	if err := catalogService.Refresh(ctx); err != nil {
		log.Printf("⚠️  Initial catalog refresh failed, serving built-in defaults: %v", err)
	}

	profileSyncWorker := workers.NewProfileSyncWorker(db, identityURL, "/v1/public/profiles", identityToken)
	go func() {
		log.Println("Starting Profile Sync Worker...")
		profileSyncWorker.Start(ctx)
	}()

	go workers.PollChainSupply(ctx, db, chainClient, 30*time.Second)
	go workers.PollExternalMints(ctx, db, chainClient, mintService, time.Minute)

	mintService.StartReconciler(catalogService)

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupAuthRoutes(app, db, identityClient, rewardsService)
	handlers.SetupRewardRoutes(app, rewardsService, mintService, taskService)
	handlers.SetupReferralRoutes(app, referralService)
	handlers.SetupMintRoutes(app, db, catalogService, rewardsService, mintService)
	handlers.SetupAdminRoutes(app, rewardsService, taskService, catalogService)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Profile Sync Worker running")
	log.Println("✅ Chain supply polling running (every 30s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
