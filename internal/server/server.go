package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"inventory-ledger/internal/config"
	"inventory-ledger/internal/database"
	custommiddleware "inventory-ledger/internal/middleware"
	"inventory-ledger/internal/observability"
	"inventory-ledger/internal/repository"
	"inventory-ledger/internal/service"
	"inventory-ledger/internal/stock"
	"inventory-ledger/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies are the resources the server is built on. DB and Redis are
// optional: the memory store runs without a database and rate limiting is
// skipped without Redis.
type Dependencies struct {
	Store   repository.Store
	DB      *sql.DB
	Redis   *redis.Client
	Metrics *observability.Metrics
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
}

// NewRouter wires services, handlers and middleware onto a chi router
func NewRouter(cfg *config.Config, logger *zap.Logger, deps Dependencies) http.Handler {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.SecurityHeaders(cfg.Server.IsProduction()))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, !cfg.Server.IsProduction()))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
	}
	if deps.Redis != nil {
		router.Use(custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "inventory_rate_limit",
		}, logger))
	}

	router.Get("/health", healthHandler(cfg, deps))
	router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	// Initialize services
	var engineOpts []stock.Option
	if deps.Metrics != nil {
		engineOpts = append(engineOpts, stock.WithObserver(deps.Metrics))
	}
	engine := stock.NewEngine(engineOpts...)
	repos := deps.Store.Repositories()

	catalogService := service.NewCatalogService(deps.Store, engine)
	ledgerService := service.NewLedgerService(deps.Store, engine, logger)
	userService := service.NewUserService(repos.Users, repos.RefreshTokens, cfg.JWT.Secret,
		service.WithTokenExpiry(
			time.Duration(cfg.JWT.AccessExpiry)*time.Minute,
			time.Duration(cfg.JWT.RefreshExpiry)*24*time.Hour,
		),
		service.WithAdminEmails(cfg.JWT.AdminEmails...),
	)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	// Register routes
	transport.NewUserHandler(userService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewLedgerHandler(ledgerService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewAdminHandler(ledgerService, logger).RegisterRoutes(router, authMiddleware)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}

func healthHandler(cfg *config.Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status": "ok",
			"store":  cfg.Store.Driver,
		}
		status := http.StatusOK

		if deps.DB != nil {
			db := database.Health(r.Context(), deps.DB)
			body["database"] = db
			if db["status"] != "up" {
				body["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		if deps.Redis != nil {
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				// the rate limiter lets requests through while redis is down
				body["redis"] = "down"
			} else {
				body["redis"] = "up"
			}
		}

		custommiddleware.RespondWithJSON(w, status, body)
	}
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      NewRouter(cfg, logger, deps),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		deps:   deps,
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	// Close database connection
	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
