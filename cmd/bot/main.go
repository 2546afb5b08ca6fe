package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flashcards/internal/config"
	"flashcards/internal/flashcards"
	"flashcards/internal/handler"
	"flashcards/internal/repository/objects"
	"flashcards/internal/service"
	"flashcards/internal/storage"
	"flashcards/internal/storage/memory"
	"flashcards/internal/storage/postgres"
	"flashcards/internal/storage/s3store"

	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Flashcards Bot")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Configuration loaded successfully", zap.String("backend", cfg.Backend))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the storage backend
	client, closeClient, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer closeClient()

	// Initialize stores, one flashcard store per user under flashcards/<user_id>
	stores, err := flashcards.NewStores(ctx, storage.Scope(client, "flashcards"), logger)
	if err != nil {
		logger.Fatal("Failed to initialize flashcard stores", zap.Error(err))
	}
	stores.On(storage.EventChange, service.ChangeLogger(logger))

	userRepo, err := objects.NewUserRepo(ctx, storage.Scope(client, "users"))
	if err != nil {
		logger.Fatal("Failed to initialize user repository", zap.Error(err))
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.BotPassword)

	// Initialize Telegram bot
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	logger.Info("Telegram bot initialized")

	// Initialize handler
	h := handler.NewHandler(bot, authService, stores, logger)
	h.RegisterHandlers()

	logger.Info("Handlers registered")

	// Start bot in background
	go func() {
		logger.Info("Bot started successfully")
		bot.Start()
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info("Shutdown signal received, stopping bot...")

	// Graceful shutdown
	bot.Stop()
	cancel()

	logger.Info("Bot stopped gracefully")
}

// openStorage creates the storage client selected by cfg.Backend
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Client, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		// Connect to database with retries
		db, err := connectDatabase(cfg.DSN(), logger)
		if err != nil {
			return nil, nil, err
		}

		logger.Info("Database connection established")

		if err := runMigrations(db, logger); err != nil {
			db.Close()
			return nil, nil, err
		}

		logger.Info("Database migrations completed")
		return postgres.New(db), func() { db.Close() }, nil

	case config.BackendS3:
		client, err := s3store.Connect(ctx, s3store.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}

		logger.Info("Object storage configured", zap.String("bucket", cfg.S3.Bucket))
		return client, func() {}, nil

	case config.BackendMemory:
		logger.Warn("Using in-memory storage, cards are lost on restart")
		return memory.New(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// connectDatabase connects to PostgreSQL with retries
func connectDatabase(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
			continue
		}

		// Test connection
		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// runMigrations applies the objects table migrations
func runMigrations(db *sql.DB, logger *zap.Logger) error {
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No new migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to run migrations: %w", err)
	default:
		logger.Info("Migrations applied successfully")
	}

	return nil
}
