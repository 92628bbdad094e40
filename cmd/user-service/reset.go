package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/storefront/user-service/internal/events"
	redisclient "github.com/storefront/user-service/internal/redis"
)

var resetPeriod string

// resetMonthlyCmd asks every running instance to reset its monthly counters
// by publishing a billing period close on the billing stream.
var resetMonthlyCmd = &cobra.Command{
	Use:   "reset-monthly",
	Short: "Publish a billing period close so running instances reset monthly usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runResetMonthly(ctx)
	},
}

func init() {
	resetMonthlyCmd.Flags().StringVar(&resetPeriod, "period", "", "billing period being closed, e.g. 2026-02 (defaults to last month)")
}

func runResetMonthly(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.RedisEnabled() {
		return errors.New("REDIS_ADDR is required to reach running instances")
	}

	client, err := redisclient.NewClient(ctx, redisOptions(cfg), logger.Named("redis"))
	if err != nil {
		return err
	}
	defer client.Close()

	period := resetPeriod
	if period == "" {
		now := time.Now().UTC()
		period = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0).Format("2006-01")
	}

	publisher := events.NewPublisher(client.Client, events.PublisherConfig{Source: serviceName, Logger: logger})
	if err := publisher.Publish(ctx, events.BillingEventsStream, events.BillingPeriodClosed, events.BillingPeriodClosedEvent{
		Period: period,
	}); err != nil {
		return fmt.Errorf("publish reset: %w", err)
	}

	logger.Info("billing period close published", zap.String("period", period))
	return nil
}
