package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookingtms/bookingtms-backend/api/controllers"
	"github.com/bookingtms/bookingtms-backend/api/middleware"
	"github.com/bookingtms/bookingtms-backend/internal/activities"
	checkoutsvc "github.com/bookingtms/bookingtms-backend/internal/checkout"
	"github.com/bookingtms/bookingtms-backend/internal/promos"
	"github.com/bookingtms/bookingtms-backend/internal/reservations"
	stripewebhook "github.com/bookingtms/bookingtms-backend/internal/webhooks/stripe"
	"github.com/bookingtms/bookingtms-backend/internal/widget"
	"github.com/bookingtms/bookingtms-backend/pkg/config"
	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
	"github.com/bookingtms/bookingtms-backend/pkg/redis"
)

// OrganizationFinder resolves widget tenants by their public slug.
type OrganizationFinder interface {
	FindBySlug(ctx context.Context, slug string) (*models.Organization, error)
}

// RouterParams collects everything the HTTP surface depends on.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	Redis         *redis.Client
	Organizations OrganizationFinder
	Widget        widget.Service
	Reservations  reservations.Service
	Checkout      checkoutsvc.Service
	Activities    activities.Service
	Promos        promos.Service
	StripeWebhook stripewebhook.Service
}

// NewRouter assembles the three HTTP surfaces: the key-authenticated widget
// API, the Stripe webhook receiver, and the JWT-authenticated admin API.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	// A typed-nil client must become a nil interface so the middlewares can
	// disable themselves.
	var idempotencyStore redis.IdempotencyStore
	var limiterStore middleware.RateLimiterStore
	if p.Redis != nil {
		idempotencyStore = p.Redis
		limiterStore = p.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	quotePolicy := middleware.NewRateLimitPolicy(
		"quote",
		cfg.RateLimit.QuoteWindow,
		cfg.RateLimit.QuoteIPLimit,
		0,
	)
	reservePolicy := middleware.NewRateLimitPolicy(
		"reserve",
		cfg.RateLimit.ReserveWindow,
		cfg.RateLimit.ReserveLimit,
		cfg.RateLimit.ReserveLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", controllers.StripeWebhook(p.StripeWebhook, logg))
	})

	r.Route("/api/v1/widget", func(r chi.Router) {
		r.Use(middleware.WidgetAuth(p.Organizations, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(quotePolicy, limiterStore, logg))
			r.Get("/activities/{activityID}/pricing", controllers.WidgetPricing(p.Widget, logg))
			r.Post("/quote", controllers.WidgetQuote(p.Widget, logg))
			r.Post("/promos/validate", controllers.WidgetPromoValidate(p.Widget, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(reservePolicy, limiterStore, logg))
			r.Post("/reservations", controllers.Reserve(p.Widget, p.Reservations, logg))
			r.Get("/reservations/{bookingID}", controllers.GetReservation(p.Reservations, logg))
			r.Post("/reservations/{bookingID}/cancel", controllers.CancelReservation(p.Reservations, logg))
			r.Post("/checkout", controllers.StartCheckout(p.Widget, p.Reservations, p.Checkout, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/activities", controllers.ListAdminActivities(p.Activities, logg))
		r.Route("/activities/{activityID}/tiers", func(r chi.Router) {
			r.Get("/", controllers.ListAdminTiers(p.Activities, logg))
			r.Post("/", controllers.CreateAdminTier(p.Activities, logg))
			r.Patch("/{tierID}", controllers.UpdateAdminTier(p.Activities, logg))
			r.Delete("/{tierID}", controllers.DeactivateAdminTier(p.Activities, logg))
		})

		r.Route("/promos", func(r chi.Router) {
			r.Get("/", controllers.ListAdminPromos(p.Promos, logg))
			r.Post("/", controllers.CreateAdminPromo(p.Promos, logg))
			r.Get("/{promoID}", controllers.GetAdminPromo(p.Promos, logg))
			r.Patch("/{promoID}", controllers.UpdateAdminPromo(p.Promos, logg))
			r.Delete("/{promoID}", controllers.ArchiveAdminPromo(p.Promos, logg))
		})
	})

	return r
}
