package main

import (
	"context"
	"log"

	"carabin/backend/ai"
	"carabin/backend/config"
	"carabin/backend/events"
	"carabin/backend/middleware"
	"carabin/backend/routes"
	"carabin/backend/services/email"
	"carabin/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Email delivery: sendgrid in production, console otherwise
	var mailer email.Service
	if cfg.SendgridKey != "" {
		mailer = email.NewSendgridService(cfg, logger)
	} else {
		logger.Println("SENDGRID_API_KEY not set, mails go to the console")
		mailer = email.NewConsoleService(logger)
	}

	// AI validation job runner
	hub := events.NewHub()
	client := ai.NewClient(cfg)
	if client.Enabled() {
		runner := ai.NewRunner(db, client, hub, logger)
		go runner.Start(context.Background())
	} else {
		logger.Println("Azure OpenAI not configured, validation jobs stay queued")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: (cfg.MaxUploadMB + 1) << 20,
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, db, cfg, hub, mailer, logger)

	// Start server
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}
