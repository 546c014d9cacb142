package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"competition-system/handlers"
	"competition-system/middleware"
	"competition-system/models"
	"competition-system/services"
	"competition-system/utils"
	"competition-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 16 * 1024 * 1024, // banners only
	})

	// Only the bot gateway talks to this service.
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID, X-User-Roles, X-Service-Token",
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Competition{},
		&models.CompetitionParticipant{},
		&models.Season{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}
	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	privileged := services.NewPrivilegedOwners(splitCSV(os.Getenv("PRIVILEGED_OWNER_IDS")))
	seasons := services.NewStoreSeasonCalendar(db)
	limits := services.NewLimitValidator(db, seasons, privileged)
	limiter := services.NewCreationRateLimiter()

	cooldown := 5 * time.Minute
	if v := os.Getenv("CREATION_COOLDOWN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatal("invalid CREATION_COOLDOWN:", err)
		}
		cooldown = d
	}

	competitionService := services.NewCompetitionService(db, limits, limiter, seasons, cooldown)
	participantService := services.NewParticipantService(db, seasons, privileged)

	gameDataURL := os.Getenv("GAME_DATA_SERVICE_URL")
	if gameDataURL == "" {
		log.Fatal("GAME_DATA_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("COMPETITION_SERVICE_TOKEN")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seasonWorker := workers.NewSeasonSyncWorker(db, gameDataURL, serviceToken)
	go func() {
		log.Println("starting season sync worker")
		seasonWorker.Start(ctx)
	}()

	if err := competitionService.StartCompletionSweep(); err != nil {
		log.Fatal("failed to start completion sweep:", err)
	}

	handlers.SetupCompetitionRoutes(app, competitionService, participantService)

	app.Static("/uploads", "./uploads")

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("server error: %v", err)
		}
	}()

	log.Println("competition service running on http://localhost:5300")
	log.Println("season sync worker running, completion sweep running")

	<-ctx.Done()
	log.Println("shutting down")
	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
