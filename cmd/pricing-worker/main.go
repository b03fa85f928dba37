package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/bookingtms/bookingtms-backend/internal/activities"
	"github.com/bookingtms/bookingtms-backend/internal/consumers/pricing"
	"github.com/bookingtms/bookingtms-backend/internal/organizations"
	"github.com/bookingtms/bookingtms-backend/internal/promos"
	"github.com/bookingtms/bookingtms-backend/internal/widget"
	"github.com/bookingtms/bookingtms-backend/pkg/config"
	"github.com/bookingtms/bookingtms-backend/pkg/db"
	"github.com/bookingtms/bookingtms-backend/pkg/instance"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
	"github.com/bookingtms/bookingtms-backend/pkg/migrate"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox/idempotency"
	"github.com/bookingtms/bookingtms-backend/pkg/pubsub"
	"github.com/bookingtms/bookingtms-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "pricing-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "pricing-worker"

	logg = logger.New(logger.Options{
		ServiceName: "pricing-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	subscription := pubsubClient.PricingSubscription()
	if subscription == nil {
		logg.Error(ctx, "pricing subscription not configured", errors.New("missing pricing subscription"))
		os.Exit(1)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	orgRepo := organizations.NewRepository(dbClient.DB())

	activitiesSvc, err := activities.NewService(activities.NewRepository(dbClient.DB()), dbClient, outboxSvc)
	requireResource(ctx, logg, "activities service", err)

	promosSvc, err := promos.NewService(promos.NewRepository(dbClient.DB()), dbClient, outboxSvc)
	requireResource(ctx, logg, "promos service", err)

	widgetSvc, err := widget.NewService(widget.ServiceParams{
		Pricing:        activitiesSvc,
		Promos:         promosSvc,
		Organizations:  orgRepo,
		Cache:          redisClient,
		CacheTTL:       cfg.Pricing.CacheTTL,
		DefaultTaxRate: cfg.Pricing.DefaultTaxRate,
		Logger:         logg,
	})
	requireResource(ctx, logg, "widget service", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Outbox.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	consumer, err := pricing.NewConsumer(widgetSvc, logg)
	requireResource(ctx, logg, "pricing consumer", err)

	worker, err := pricing.NewWorker(subscription, consumer, manager, logg)
	requireResource(ctx, logg, "pricing worker", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "pricing worker ready")

	if err := worker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "pricing worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "pricing worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
