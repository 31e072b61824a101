package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	config "postpilot/configs"
	"postpilot/internal/api/handlers"
	"postpilot/internal/api/middleware"
	"postpilot/internal/database"
	job "postpilot/internal/jobs"
	"postpilot/internal/logging"
	"postpilot/internal/repository"
	"postpilot/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	logger := logging.New(os.Stdout, cfg.LogLevel)

	db, err := database.Connect(cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	postRepo := repository.NewPostRepository(db)
	execRepo := repository.NewExecutionRepository(db)

	publisher := service.NewPublisherService(postRepo, service.PublisherConfig{
		MaxBatchSize: cfg.MaxBatchSize,
		MaxRetries:   cfg.MaxRetries,
		BaseDelay:    cfg.BaseDelay,
		MaxDelay:     cfg.MaxDelay,
		OpTimeout:    cfg.OpTimeout,
	}, logger)
	monitor := service.NewMonitorService(service.MonitorConfig{
		SlowRunThreshold: cfg.SlowRunThreshold,
		ErrorCountAlert:  cfg.ErrorCountAlert,
		LargeRunAlert:    cfg.LargeRunAlert,
	})
	scheduler := service.NewSchedulerService(publisher, execRepo, monitor, logger)
	security := service.NewSecurityService(service.SecurityConfig{
		CronSecret:         cfg.CronSecret,
		ViolationThreshold: cfg.ViolationThreshold,
		ViolationWindow:    cfg.ViolationWindow,
	}, logger)

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(fiberlogger.New())

	app.Get("/healthz", handlers.Healthz)

	cronAuth := middleware.NewCronAuthMiddleware(security)
	cronAPI := app.Group("/api/cron")
	cronAPI.Use(cronAuth.CronAuth())

	cronHandler := handlers.NewCronHandler(scheduler)
	cronAPI.Post("/publish-posts", cronHandler.TriggerPublish)

	// in-process trigger, alongside (or instead of) external cron
	c := cron.New()
	if cfg.PublishInterval != "" {
		publishJob := job.NewPublishJob(scheduler)
		if _, err := c.AddJob(cfg.PublishInterval, publishJob); err != nil {
			log.Fatalf("Invalid publish interval %q: %v", cfg.PublishInterval, err)
		}
		c.Start()
	}

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ListenAddr)

	gracefulShutdown(app, c, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, c *cron.Cron, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	<-c.Stop().Done()

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
