package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bookingtms/bookingtms-backend/api/routes"
	"github.com/bookingtms/bookingtms-backend/internal/activities"
	"github.com/bookingtms/bookingtms-backend/internal/checkout"
	"github.com/bookingtms/bookingtms-backend/internal/organizations"
	"github.com/bookingtms/bookingtms-backend/internal/promos"
	"github.com/bookingtms/bookingtms-backend/internal/reservations"
	stripewebhook "github.com/bookingtms/bookingtms-backend/internal/webhooks/stripe"
	"github.com/bookingtms/bookingtms-backend/internal/widget"
	"github.com/bookingtms/bookingtms-backend/pkg/config"
	"github.com/bookingtms/bookingtms-backend/pkg/db"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
	"github.com/bookingtms/bookingtms-backend/pkg/metrics"
	"github.com/bookingtms/bookingtms-backend/pkg/migrate"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox"
	"github.com/bookingtms/bookingtms-backend/pkg/redis"
	pkgstripe "github.com/bookingtms/bookingtms-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	orgRepo := organizations.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	activitiesSvc, err := activities.NewService(activities.NewRepository(dbClient.DB()), dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create activities service", err)
		os.Exit(1)
	}

	promosSvc, err := promos.NewService(promos.NewRepository(dbClient.DB()), dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create promos service", err)
		os.Exit(1)
	}

	widgetSvc, err := widget.NewService(widget.ServiceParams{
		Pricing:        activitiesSvc,
		Promos:         promosSvc,
		Organizations:  orgRepo,
		Cache:          redisClient,
		CacheTTL:       cfg.Pricing.CacheTTL,
		DefaultTaxRate: cfg.Pricing.DefaultTaxRate,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create widget service", err)
		os.Exit(1)
	}

	reservationRepo := reservations.NewRepository(dbClient.DB())
	reservationSvc, err := reservations.NewService(
		reservationRepo,
		dbClient,
		outboxSvc,
		metrics.NewReservationMetrics(prometheus.DefaultRegisterer),
		logg,
		cfg.Reservation.HoldTTL,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(reservationRepo, checkout.NewStripeClient(stripeClient), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Reservations:  reservationSvc,
		Bookings:      reservationRepo,
		Promos:        promosSvc,
		Guard:         stripewebhook.NewIdempotencyGuard(redisClient),
		SigningSecret: cfg.Stripe.Secret,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			Redis:         redisClient,
			Organizations: orgRepo,
			Widget:        widgetSvc,
			Reservations:  reservationSvc,
			Checkout:      checkoutSvc,
			Activities:    activitiesSvc,
			Promos:        promosSvc,
			StripeWebhook: webhookSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
