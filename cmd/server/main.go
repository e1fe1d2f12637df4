// Package main is the entry point for the Finance API
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/financeapi/internal/api"
	"github.com/nsvirk/financeapi/internal/api/middleware"
	"github.com/nsvirk/financeapi/internal/auth"
	"github.com/nsvirk/financeapi/internal/config"
	"github.com/nsvirk/financeapi/internal/mailer"
	"github.com/nsvirk/financeapi/internal/repository"
	"github.com/nsvirk/financeapi/internal/service"
	"github.com/nsvirk/financeapi/pkg/utils/zaplogger"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Print the configuration
	fmt.Println(cfg.String())

	// Setup logger
	defer zaplogger.Sync()
	zaplogger.SetLogLevel(cfg.ServerLogLevel)

	// Connect to the database
	db, err := repository.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", cfg.DBDriver, err)
	}

	// Init logger
	if err := zaplogger.InitLogger(db); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Connect Redis, needed for shared sessions, the login rate limit and the transaction channel
	var redisClient *redis.Client
	if cfg.SessionStore == config.SessionStoreRedis || cfg.DBDriver == config.DriverPostgres {
		redisClient, err = repository.ConnectRedis(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	var sessions repository.SessionStore
	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		sessions = repository.NewMemorySessionStore(cfg.SessionTTL)
	default:
		sessions = repository.NewRedisSessionStore(redisClient, cfg.SessionTTL)
	}

	// LISTEN/NOTIFY only exists on Postgres
	var notifier service.TransactionNotifier
	if cfg.DBDriver == config.DriverPostgres {
		notifier = service.NewPgNotifier(db)
	}

	// startUpMessage
	zaplogger.Info(cfg.APIName + " - " + cfg.APIVersion + " initialized")
	zaplogger.Info("Database initialized", zaplogger.Fields{"driver": cfg.DBDriver})
	zaplogger.Info("Session store initialized", zaplogger.Fields{"store": cfg.SessionStore})

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Setup middleware
	middleware.SetupLoggerMiddleware(e)

	// Setup routes
	api.SetupRoutes(e, api.Deps{
		Config:   cfg,
		DB:       db,
		Redis:    redisClient,
		Sessions: sessions,
		Tokens:   auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL),
		Mailer:   mailer.NewSMTPMailer(cfg),
		Notifier: notifier,
	})

	// Setup and start cron jobs
	cronService := service.NewCronService(cfg, db, sessions)
	cronService.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Relay new transactions to the redis channel
	if notifier != nil && redisClient != nil {
		publishService := service.NewPublishService(redisClient, cfg.PostgresDsn)
		go func() {
			if err := publishService.PublishTransactionsToRedisChannel(ctx); err != nil {
				zaplogger.Error("transaction publisher stopped", zaplogger.Fields{"error": err.Error()})
			}
		}()
	}

	// Start the server
	go startServer(e, cfg)

	<-ctx.Done()
	zaplogger.Info("SERVER SHUTTING DOWN")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zaplogger.Error("server shutdown failed", zaplogger.Fields{"error": err.Error()})
	}
	<-cronService.Stop().Done()
}

// startServer starts the Echo server on the specified port
func startServer(e *echo.Echo, cfg *config.Config) {
	port := cfg.ServerPort
	if port == "" {
		port = "5000"
	}
	zaplogger.Info("SERVER STARTED ON PORT " + port)
	if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zaplogger.Fatal("server failed", zaplogger.Fields{"error": err.Error()})
	}
}
