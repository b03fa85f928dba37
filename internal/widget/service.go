package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/internal/activities"
	"github.com/bookingtms/bookingtms-backend/internal/pricing"
	"github.com/bookingtms/bookingtms-backend/internal/promos"
	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
)

type pricingLoader interface {
	GetActivityPricing(ctx context.Context, activityID uuid.UUID) (*activities.ActivityPricing, error)
}

type promoValidator interface {
	Validate(ctx context.Context, orgID uuid.UUID, code string, purchase promos.Purchase) (promos.Validation, error)
}

type orgLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

// PriceRequest is the widget's calculate call: counts for the standard
// tiers plus explicit lines for anything else.
type PriceRequest struct {
	ActivityID  uuid.UUID
	Adults      int
	Children    int
	CustomTiers []pricing.LineRequest
	PromoCode   string
	Age         *int
}

// PromoResult reports how the submitted promo code fared. Invalid codes do
// not fail the calculation; the widget shows Message and prices without the
// discount.
type PromoResult struct {
	Code    string `json:"code"`
	IsValid bool   `json:"is_valid"`
	Message string `json:"message,omitempty"`

	// PromoCodeID is set for valid codes so bookings can freeze the
	// reference; it is not part of the widget payload.
	PromoCodeID *uuid.UUID `json:"-"`
}

// PriceResult is a fully priced booking ready for display.
type PriceResult struct {
	Lines     []pricing.Line    `json:"lines"`
	Breakdown pricing.Breakdown `json:"breakdown"`
	Currency  enums.Currency    `json:"currency"`
	Promo     *PromoResult      `json:"promo,omitempty"`
}

// Service is the embeddable widget's pricing surface.
type Service interface {
	GetActivityPricing(ctx context.Context, activityID uuid.UUID) (*activities.ActivityPricing, error)
	CalculateBookingPrice(ctx context.Context, req PriceRequest) (*PriceResult, error)
	InvalidateActivityPricing(ctx context.Context, activityID uuid.UUID)
}

type service struct {
	pricingSvc     pricingLoader
	promoSvc       promoValidator
	orgs           orgLoader
	cache          cacheStore
	cacheTTL       time.Duration
	defaultTaxRate float64
	logg           *logger.Logger
}

// ServiceParams collects the widget service dependencies.
type ServiceParams struct {
	Pricing       pricingLoader
	Promos        promoValidator
	Organizations orgLoader
	Cache         cacheStore
	CacheTTL      time.Duration
	// DefaultTaxRate applies when the organization row is missing.
	DefaultTaxRate float64
	Logger         *logger.Logger
}

// NewService builds the widget service. Cache is optional; without it every
// pricing read hits the database.
func NewService(params ServiceParams) (Service, error) {
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing loader required")
	}
	if params.Promos == nil {
		return nil, fmt.Errorf("promo validator required")
	}
	if params.Organizations == nil {
		return nil, fmt.Errorf("organization loader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	cacheTTL := params.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	taxRate := params.DefaultTaxRate
	if taxRate <= 0 {
		taxRate = pricing.DefaultTaxRate
	}
	return &service{
		pricingSvc:     params.Pricing,
		promoSvc:       params.Promos,
		orgs:           params.Organizations,
		cache:          params.Cache,
		cacheTTL:       cacheTTL,
		defaultTaxRate: taxRate,
		logg:           params.Logger,
	}, nil
}

// GetActivityPricing returns nil for unknown or inactive activities. Cache
// failures fall through to the database rather than failing the read.
func (s *service) GetActivityPricing(ctx context.Context, activityID uuid.UUID) (*activities.ActivityPricing, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, s.pricingCacheKey(activityID)); err == nil && cached != "" {
			var out activities.ActivityPricing
			if jsonErr := json.Unmarshal([]byte(cached), &out); jsonErr == nil {
				return &out, nil
			}
		}
	}

	fresh, err := s.pricingSvc.GetActivityPricing(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, nil
	}

	if s.cache != nil {
		if raw, jsonErr := json.Marshal(fresh); jsonErr == nil {
			if cacheErr := s.cache.Set(ctx, s.pricingCacheKey(activityID), string(raw), s.cacheTTL); cacheErr != nil {
				s.logg.Warn(s.logg.WithActivityID(ctx, activityID.String()), "pricing cache write failed")
			}
		}
	}
	return fresh, nil
}

// CalculateBookingPrice prices the requested party. An invalid promo code is
// reported in the result; only infrastructure failures and malformed
// requests return errors.
func (s *service) CalculateBookingPrice(ctx context.Context, req PriceRequest) (*PriceResult, error) {
	if req.Adults < 0 || req.Children < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counts cannot be negative")
	}

	partySize := req.Adults + req.Children
	for _, line := range req.CustomTiers {
		partySize += line.Quantity
	}
	if partySize <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party size must be at least 1")
	}

	activityPricing, err := s.GetActivityPricing(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	if activityPricing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "activity pricing not available")
	}

	requests, err := s.buildLineRequests(activityPricing, req)
	if err != nil {
		return nil, err
	}

	org, err := s.orgs.FindByID(ctx, activityPricing.Activity.OrganizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load organization")
	}
	taxRate := s.defaultTaxRate
	currency := enums.CurrencyUSD
	if org != nil {
		taxRate = org.TaxRate
		currency = org.Currency
	}

	base, err := pricing.BuildQuote(activityPricing.Tiers, requests, taxRate, 0)
	if err != nil {
		return nil, err
	}

	result := &PriceResult{
		Lines:     base.Lines,
		Breakdown: base.Breakdown,
		Currency:  currency,
	}

	if req.PromoCode == "" {
		return result, nil
	}

	purchase := promos.Purchase{
		ActivityID: activityPricing.Activity.ID,
		VenueID:    activityPricing.Activity.VenueID,
		Subtotal:   base.Breakdown.Subtotal,
	}
	validation, err := s.promoSvc.Validate(ctx, activityPricing.Activity.OrganizationID, req.PromoCode, purchase)
	if err != nil {
		return nil, err
	}

	result.Promo = &PromoResult{Code: req.PromoCode, IsValid: validation.IsValid, Message: validation.Message}
	if !validation.IsValid {
		return result, nil
	}
	result.Promo.PromoCodeID = &validation.Promo.ID

	discount := promos.DiscountAmount(validation.Promo, base.Breakdown.Subtotal)
	discounted, err := pricing.BuildQuote(activityPricing.Tiers, requests, taxRate, discount)
	if err != nil {
		return nil, err
	}
	result.Lines = discounted.Lines
	result.Breakdown = discounted.Breakdown
	return result, nil
}

// InvalidateActivityPricing drops the cached pricing for one activity. Called
// when a pricing.updated event lands.
func (s *service) InvalidateActivityPricing(ctx context.Context, activityID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.pricingCacheKey(activityID)); err != nil {
		s.logg.Warn(s.logg.WithActivityID(ctx, activityID.String()), "pricing cache invalidation failed")
	}
}

func (s *service) pricingCacheKey(activityID uuid.UUID) string {
	if s.cache == nil {
		return "pricing:" + activityID.String()
	}
	return s.cache.CacheKey("pricing", activityID.String())
}

func (s *service) buildLineRequests(activityPricing *activities.ActivityPricing, req PriceRequest) ([]pricing.LineRequest, error) {
	var requests []pricing.LineRequest

	if req.Adults > 0 {
		tier := DefaultTierFor(activityPricing, enums.TierTypeAdult)
		if tier == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier not found").
				WithDetails(map[string]any{"tier_type": enums.TierTypeAdult.String()})
		}
		requests = append(requests, pricing.LineRequest{TierID: tier.ID, Quantity: req.Adults})
	}
	if req.Children > 0 {
		tier := DefaultTierFor(activityPricing, enums.TierTypeChild)
		if tier == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier not found").
				WithDetails(map[string]any{"tier_type": enums.TierTypeChild.String()})
		}
		requests = append(requests, pricing.LineRequest{TierID: tier.ID, Quantity: req.Children, Age: req.Age})
	}
	requests = append(requests, req.CustomTiers...)
	return requests, nil
}

// DefaultTierFor picks the tier the widget books for a tier type: the
// default when one is flagged, otherwise the first active tier of that type.
func DefaultTierFor(activityPricing *activities.ActivityPricing, tierType enums.TierType) *models.PricingTier {
	if activityPricing == nil {
		return nil
	}
	var fallback *models.PricingTier
	for i := range activityPricing.Tiers {
		tier := &activityPricing.Tiers[i]
		if tier.TierType != tierType || !tier.IsActive {
			continue
		}
		if tier.IsDefault {
			return tier
		}
		if fallback == nil {
			fallback = tier
		}
	}
	return fallback
}

// GetCheckoutPriceID resolves the payment processor price id for a tier
// type, nil when the tier has no mapped price.
func GetCheckoutPriceID(activityPricing *activities.ActivityPricing, tierType enums.TierType) *string {
	tier := DefaultTierFor(activityPricing, tierType)
	if tier == nil {
		return nil
	}
	return tier.CheckoutPriceID
}
