package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"

	"terratiles/internal/config"
	"terratiles/internal/database"
	"terratiles/internal/handlers"
	"terratiles/internal/repository"
	"terratiles/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	telemetryRepo := repository.NewTelemetryRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	// Initialize services
	userService := service.NewUserService(userRepo, sessionRepo)
	progressService := service.NewProgressService(progressRepo, userRepo)
	telemetryService := service.NewTelemetryService(telemetryRepo, userRepo)
	adminService := service.NewAdminService(adminRepo, userRepo, sessionRepo, telemetryRepo)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	progressHandler := handlers.NewProgressHandler(progressService)
	telemetryHandler := handlers.NewTelemetryHandler(telemetryService)
	adminHandler := handlers.NewAdminHandler(adminService)

	router := handlers.NewRouter(cfg.AllowedOrigins, userHandler, progressHandler, telemetryHandler, adminHandler)

	// Hourly sweep flagging users with no recent activity
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			n, err := userService.DeactivateStaleUsers(cfg.StaleUserAfter)
			if err != nil {
				log.Printf("Warning: stale user sweep failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("Stale user sweep deactivated %d users", n)
			}
		}),
	)
	if err != nil {
		log.Fatalf("Failed to schedule stale user sweep: %v", err)
	}
	sched.Start()
	defer func() { _ = sched.Shutdown() }()

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Warning: shutdown incomplete: %v", err)
	}
}
