package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wayfarer-app/wayfarer-backend/config"
	"github.com/wayfarer-app/wayfarer-backend/db"
	"github.com/wayfarer-app/wayfarer-backend/handlers"
	"github.com/wayfarer-app/wayfarer-backend/internal/events"
	"github.com/wayfarer-app/wayfarer-backend/internal/payment"
	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/router"
	"github.com/wayfarer-app/wayfarer-backend/services"
	"github.com/wayfarer-app/wayfarer-backend/store/postgres"
)

const version = "1.0.0"

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbURL := cfg.Database.URL()
	if err := db.RunMigrations(dbURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatalf("Failed to parse database config: %v", err)
	}
	if cfg.Database.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.Database.MaxConnections)
	}
	if cfg.Server.Environment == config.EnvProduction {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName: cfg.Database.Host,
			MinVersion: tls.VersionTLS12,
		}
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	redisOptions := &redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Server.Environment == config.EnvProduction {
		redisOptions.TLSConfig = &tls.Config{
			ServerName: cfg.Redis.Address,
			MinVersion: tls.VersionTLS12,
		}
	}
	redisClient := redis.NewClient(redisOptions)
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Warnw("Failed to close redis client", "error", err)
		}
	}()

	// Stores
	planStore := postgres.NewPgPlanStore(pool)
	bookingStore := postgres.NewPgBookingStore(pool)
	paymentStore := postgres.NewPgPaymentStore(pool)
	invitationStore := postgres.NewPgInvitationStore(pool)

	// Services
	publisher := events.NewRedisPublisher(redisClient)
	gateway := payment.NewClient(
		cfg.PaymentGateway.APIURL,
		cfg.PaymentGateway.APIKey,
		cfg.PaymentGateway.WebhookSecret,
	)
	emailService := services.NewEmailService(&cfg.Email)

	planService := services.NewPlanService(planStore, publisher)
	bookingService := services.NewBookingService(bookingStore, paymentStore, gateway, publisher)
	invitationService := services.NewInvitationService(invitationStore, planStore, emailService, publisher, cfg.Server.FrontendURL)
	healthService := services.NewHealthService(pool, redisClient, version)

	r := router.SetupRouter(router.Dependencies{
		Config:            cfg,
		PlanHandler:       handlers.NewPlanHandler(planService),
		BookingHandler:    handlers.NewBookingHandler(bookingService),
		InvitationHandler: handlers.NewInvitationHandler(invitationService),
		HealthHandler:     handlers.NewHealthHandler(healthService),
		Logger:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}
	log.Info("Server exited")
}
