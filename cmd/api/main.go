package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"inventory-ledger/internal/config"
	"inventory-ledger/internal/database"
	"inventory-ledger/internal/logger"
	"inventory-ledger/internal/observability"
	"inventory-ledger/internal/repository"
	"inventory-ledger/internal/repository/memory"
	"inventory-ledger/internal/server"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, cfg *config.Config, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// In-flight requests get ShutdownTimeout to finish
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

// openStore builds the configured store. The database handle is nil for
// the memory store.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, *sql.DB, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		log.Warn("Using the in-memory store, data is lost on restart")
		return memory.New(), nil, nil
	}

	db, err := database.Open(ctx, cfg.Database.DSN(), log)
	if err != nil {
		return nil, nil, err
	}

	// Run migrations
	if err := database.RunMigrations(db, cfg.Store.MigrationsDir, log); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if !cfg.Server.IsProduction() {
		status, err := database.GetMigrationStatus(db, cfg.Store.MigrationsDir)
		switch {
		case err != nil:
			log.Warn("Could not read migration status", zap.Error(err))
		case status.Pending > 0:
			log.Warn("Schema is behind the migrations on disk",
				zap.Int64("version", status.Version),
				zap.Int64("latest", status.Latest),
				zap.Int("pending", status.Pending),
			)
		}
	}
	return repository.NewStore(db), db, nil
}

func openRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		log.Info("Rate limiting disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable, rate limiting fails open until it recovers", zap.Error(err))
	}
	return client
}

func main() {
	// .env values become process environment; real environment wins
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	log.Info("Starting inventory ledger API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
	)

	ctx := context.Background()
	store, db, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}

	srv := server.NewServer(cfg, log, server.Dependencies{
		Store:   store,
		DB:      db,
		Redis:   openRedis(ctx, cfg, log),
		Metrics: observability.NewMetrics(),
	})

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, cfg, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}
