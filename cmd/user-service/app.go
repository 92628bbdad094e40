package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/storefront/user-service/internal/auth"
	"github.com/storefront/user-service/internal/clock"
	"github.com/storefront/user-service/internal/command"
	"github.com/storefront/user-service/internal/config"
	"github.com/storefront/user-service/internal/credential"
	"github.com/storefront/user-service/internal/eligibility"
	"github.com/storefront/user-service/internal/events"
	"github.com/storefront/user-service/internal/handler"
	"github.com/storefront/user-service/internal/middleware"
	"github.com/storefront/user-service/internal/models"
	"github.com/storefront/user-service/internal/query"
	redisclient "github.com/storefront/user-service/internal/redis"
	"github.com/storefront/user-service/internal/store"
	"github.com/storefront/user-service/internal/usage"
)

// app holds the wired service. redis is nil when no address is configured.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	redis    *redisclient.Client
	commands *command.AccountCommandService
	router   *gin.Engine
}

const viewKeyPrefix = "user:view:"

func wireApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	clk := clock.System{}

	var (
		rdb        *redisclient.Client
		publisher  events.EventPublisher = events.NopPublisher{}
		projection command.ViewProjection
	)
	if cfg.RedisEnabled() {
		client, err := redisclient.NewClient(ctx, redisOptions(cfg), logger.Named("redis"))
		if err != nil {
			return nil, err
		}
		rdb = client
		publisher = events.NewPublisher(client.Client, events.PublisherConfig{
			Source: serviceName,
			Logger: logger.Named("publisher"),
		})
		projection = redisclient.NewViewCache[models.AccountView](client.Client, viewKeyPrefix, cfg.ViewTTL, logger)
	} else {
		logger.Info("redis not configured; events and view projection disabled")
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL, clk)
	if err != nil {
		return nil, fmt.Errorf("configure tokens: %w", err)
	}

	accounts := store.NewAccountStore()
	tracker := usage.NewTracker(accounts, clk)
	calc := eligibility.NewCalculator(logger.Named("eligibility"))
	pool := credential.NewPool(credential.NewHasher(cfg.BcryptCost), cfg.HashWorkers)
	verifier := credential.NewVerifier(accounts, pool, clk, logger.Named("credential"))

	commandSvc := command.NewAccountCommandService(command.Deps{
		Accounts:   accounts,
		Usage:      tracker,
		Calculator: calc,
		Verifier:   verifier,
		Publisher:  publisher,
		Projection: projection,
		Clock:      clk,
		Logger:     logger.Named("command"),
	})
	querySvc := query.NewAccountQueryService(accounts, tracker, calc, commandSvc, clk)
	authSvc := auth.NewAuthService(verifier, accounts, tokens, logger.Named("auth"))

	return &app{
		cfg:      cfg,
		logger:   logger,
		redis:    rdb,
		commands: commandSvc,
		router:   newRouter(logger, tokens, rdb, handler.NewAccountHandler(commandSvc, querySvc), handler.NewAuthHandler(authSvc)),
	}, nil
}

func redisOptions(cfg config.Config) redisclient.Options {
	return redisclient.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

func newRouter(logger *zap.Logger, tokens *auth.Tokens, rdb *redisclient.Client, accounts *handler.AccountHandler, authHandler *handler.AuthHandler) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(logger), middleware.LoggingMiddleware(logger))

	accounts.Register(router.Group("/v1/users"))
	authHandler.Register(router.Group("/v1/auth"))

	admin := router.Group("/v1/admin", middleware.AuthMiddleware(tokens), middleware.RequireRole(models.RoleAdmin))
	admin.POST("/usage/reset", accounts.ResetMonthly)

	// The in-memory engine keeps serving without Redis, so a lost connection
	// degrades the service instead of failing the health check.
	router.GET("/health", func(c *gin.Context) {
		status, redisStatus := "healthy", "disabled"
		if rdb != nil {
			redisStatus = "up"
			if err := rdb.Check(c.Request.Context()); err != nil {
				status, redisStatus = "degraded", "down"
				logger.Warn("redis health check failed", zap.Error(err))
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   status,
			"service":  serviceName,
			"redis":    redisStatus,
			"features": []string{"authentication", "subscription-management", "order-limits"},
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
