package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/storefront/user-service/internal/config"
	"github.com/storefront/user-service/internal/events"
	"github.com/storefront/user-service/internal/logging"
)

const consumerGroup = "user-service-group"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and event subscribers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.New(), envFile, configFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := wireApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("user service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.redis != nil {
		for _, sub := range subscriptions(cfg.ConsumerName, a.commands.HandleOrderEvent, a.commands.HandleBillingEvent) {
			sub.Logger = logger.Named("subscriber")
			subscriber := events.NewSubscriber(a.redis.Client, sub)
			g.Go(func() error {
				if err := subscriber.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}
	}

	return g.Wait()
}

// subscriptions lists the streams one instance consumes. Order events are
// shared work: the instances split them through one consumer group. A billing
// close must reset every instance, so each reads it through a group of its
// own that starts at the stream's current end.
func subscriptions(consumer string, onOrder, onBilling events.Handler) []events.SubscriberConfig {
	return []events.SubscriberConfig{
		{
			Stream:   events.OrderEventsStream,
			Group:    consumerGroup,
			Consumer: consumer,
			Handler:  onOrder,
		},
		{
			Stream:   events.BillingEventsStream,
			Group:    billingGroup(consumer),
			Consumer: consumer,
			StartID:  "$",
			Handler:  onBilling,
		},
	}
}

func billingGroup(consumer string) string {
	return consumerGroup + ":" + consumer
}
