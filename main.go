package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"campus-community-system/handlers"
	"campus-community-system/models"
	"campus-community-system/services"
	"campus-community-system/utils"
	"campus-community-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // avatars and proof attachments
	})

	app.Use(recover.New())
	app.Use(logger.New())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	// TranslateError turns driver duplicate-key errors into
	// gorm.ErrDuplicatedKey, which registration relies on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.UserFollow{},
		&models.UserProfile{},
		&models.Campus{},
		&models.Theme{},
		&models.Challenge{},
		&models.ChallengeParticipant{},
		&models.Team{},
		&models.TeamMember{},
		&models.ChallengeSubmission{},
		&models.ChallengeWinner{},
		&models.Publication{},
		&models.PublicationReport{},
		&models.InstitutionalNews{},
		&models.CityNews{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	authService := services.NewAuthService(db)
	challengeService := services.NewChallengeService(db)
	feedService := services.NewFeedService(db)
	publicationService := services.NewPublicationService(db)
	profileService := services.NewProfileService(db)
	adminService := services.NewAdminService(db)
	newsService := services.NewNewsService(db)

	if err := authService.SeedAccessControl(); err != nil {
		log.Fatal("failed to seed roles and permissions:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if os.Getenv("CITY_NEWS_URL") != "" {
		cityNewsClient := workers.NewCityNewsClient(db)
		go workers.PollCityNews(ctx, cityNewsClient, 5*time.Minute)
		log.Println("City news polling running (every 5m)")
	} else {
		log.Println("CITY_NEWS_URL not set, city news polling disabled")
	}

	services.StartScheduler(challengeService, publicationService)

	handlers.SetupAuthRoutes(app, db, authService)
	handlers.SetupChallengeRoutes(app, db, challengeService)
	handlers.SetupFeedRoutes(app, db, feedService)
	handlers.SetupPublicationRoutes(app, db, publicationService)
	handlers.SetupProfileRoutes(app, db, profileService)
	handlers.SetupAdminRoutes(app, db, adminService)
	handlers.SetupNewsRoutes(app, db, newsService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server running on http://localhost:%s", port)
	log.Printf("CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
