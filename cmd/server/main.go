package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/thirdop-reasoning-server/internal/api"
	"github.com/thirdop-reasoning-server/internal/cache"
	"github.com/thirdop-reasoning-server/internal/config"
	"github.com/thirdop-reasoning-server/internal/database"
	"github.com/thirdop-reasoning-server/internal/domain"
	"github.com/thirdop-reasoning-server/internal/feedback"
	"github.com/thirdop-reasoning-server/internal/history"
	"github.com/thirdop-reasoning-server/internal/reasoning"
	"github.com/thirdop-reasoning-server/pkg/external"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	log.Printf("Starting ThirdOp reasoning server on %s:%d", cfg.Server.Host, cfg.Server.Port)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Generation backends, wrapped with circuit breakers so a dead model
	// host stops accumulating blocked requests.
	nephrologyGen := external.NewResilientGenerator(external.NewOllamaClient(cfg.Ollama), logger)
	anyReportGen := external.NewResilientGenerator(external.NewOllamaClient(cfg.AnyReport), logger)

	var predictor external.RiskPredictor
	if cfg.RiskModel.Enabled {
		predictor = external.NewRiskModelClient(cfg.RiskModel)
	}

	service := reasoning.NewService(logger, nephrologyGen, anyReportGen, predictor)

	deps := api.Dependencies{
		Service: service,
		Breaker: nephrologyGen,
	}

	// Result cache
	if cfg.Cache.Enabled {
		results, err := cache.NewResultCache(cfg.Cache, logger)
		if err != nil {
			log.Fatalf("Failed to create result cache: %v", err)
		}
		defer results.Close()
		deps.Results = results
	}

	// History store, optional
	if cfg.History.Enabled {
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		runner, err := database.NewMigrationRunner(databaseURL(cfg.Database), cfg.Database.MigrationsPath, logger)
		if err != nil {
			log.Fatalf("Failed to create migration runner: %v", err)
		}
		if err := runner.Up(); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		runner.Close()

		deps.DB = db
		deps.History = history.NewRepository(db.Pool, logger)
	}

	// Feedback store
	store, err := newFeedbackStore(configManager)
	if err != nil {
		log.Fatalf("Failed to create feedback store: %v", err)
	}
	defer store.Close()
	deps.Feedback = store

	// Create server
	server := api.NewServer(cfg, logger, deps)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}

	log.Println("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

func newFeedbackStore(manager *config.Manager) (feedback.Store, error) {
	cfg := manager.GetConfig()

	switch cfg.Feedback.Backend {
	case "postgres":
		return feedback.NewPostgresStoreFromURL(manager.GetDatabaseConnectionString())
	default:
		return feedback.NewSQLiteStore(cfg.Feedback.SQLitePath)
	}
}

func databaseURL(cfg domain.DatabaseConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     cfg.Database,
		RawQuery: "sslmode=" + cfg.SSLMode,
	}
	return u.String()
}
