package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"valorant-hub/cache"
	"valorant-hub/handlers"
	"valorant-hub/middleware"
	"valorant-hub/models"
	"valorant-hub/services"
	"valorant-hub/valorantapi"
	"valorant-hub/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐 GLOBAL: only Gateway requests allowed — no exceptions
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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Email, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.HubUser{},
		&models.QueueEntry{},
		&models.Match{},
		&models.MatchParticipant{},
		&models.Mission{},
		&models.UserMission{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := services.SeedDefaultMissions(db); err != nil {
		log.Fatal("failed to seed missions:", err)
	}

	rdb := cache.NewRedisClient()
	statusCache := cache.NewStatusCache(rdb)

	limiter := valorantapi.NewRateLimiter(valorantapi.DefaultQuota, valorantapi.DefaultWindow)
	apiClient := valorantapi.NewClient(limiter)
	resolver := valorantapi.NewResolver(apiClient)

	matchService := services.NewMatchService(db, statusCache)
	promotionService := services.NewPromotionService(db, statusCache)
	reconcileService := services.NewReconcileService(db, statusCache, resolver)
	progressionService := services.NewProgressionService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rankSyncWorker := workers.NewRankSyncWorker(db, apiClient)
	rankSyncWorker.Start(ctx)

	sched, err := services.StartMatchScheduler(promotionService, reconcileService)
	if err != nil {
		log.Fatal("failed to start match scheduler:", err)
	}
	defer func() { _ = sched.Shutdown() }()

	handlers.SetupMatchRoutes(app, matchService)
	handlers.SetupProgressionRoutes(app, progressionService)
	handlers.SetupCronRoutes(app, promotionService, reconcileService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Match scheduler running (promotion every 15s, reconciliation every 60s)")
	log.Println("✅ Rank sync worker running")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
