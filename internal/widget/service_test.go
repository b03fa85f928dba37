package widget

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/internal/activities"
	"github.com/bookingtms/bookingtms-backend/internal/promos"
	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
)

type fakePricingLoader struct {
	pricing *activities.ActivityPricing
}

func (f fakePricingLoader) GetActivityPricing(ctx context.Context, activityID uuid.UUID) (*activities.ActivityPricing, error) {
	return f.pricing, nil
}

type fakePromoValidator struct {
	validation promos.Validation
}

func (f fakePromoValidator) Validate(ctx context.Context, orgID uuid.UUID, code string, purchase promos.Purchase) (promos.Validation, error) {
	return f.validation, nil
}

type fakeOrgLoader struct {
	org *models.Organization
}

func (f fakeOrgLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return f.org, nil
}

func intPtr(v int) *int          { return &v }
func strPtr(v string) *string    { return &v }
func floatVal(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func testActivityPricing() *activities.ActivityPricing {
	orgID := uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	activityID := uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")
	return &activities.ActivityPricing{
		Activity: models.Activity{
			ID:             activityID,
			OrganizationID: orgID,
			VenueID:        uuid.New(),
			Name:           "Escape Room",
			IsActive:       true,
		},
		Tiers: []models.PricingTier{
			{
				ID:              uuid.MustParse("11111111-1111-1111-1111-111111111111"),
				ActivityID:      activityID,
				TierType:        enums.TierTypeAdult,
				Label:           "Adult",
				UnitPrice:       25,
				IsActive:        true,
				IsDefault:       true,
				CheckoutPriceID: strPtr("price_adult"),
			},
			{
				ID:         uuid.MustParse("22222222-2222-2222-2222-222222222222"),
				ActivityID: activityID,
				TierType:   enums.TierTypeChild,
				Label:      "Child",
				UnitPrice:  15,
				IsActive:   true,
				MaxAge:     intPtr(12),
			},
		},
	}
}

func testOrg() *models.Organization {
	return &models.Organization{
		ID:       uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"),
		Currency: enums.CurrencyUSD,
		TaxRate:  0.08,
		IsActive: true,
	}
}

func newTestService(t *testing.T, loader pricingLoader, validator promoValidator) Service {
	t.Helper()
	return newTestServiceWithOrgs(t, loader, validator, fakeOrgLoader{org: testOrg()}, 0)
}

func newTestServiceWithOrgs(t *testing.T, loader pricingLoader, validator promoValidator, orgs orgLoader, defaultTaxRate float64) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Pricing:        loader,
		Promos:         validator,
		Organizations:  orgs,
		CacheTTL:       time.Minute,
		DefaultTaxRate: defaultTaxRate,
		Logger:         logger.New(logger.Options{ServiceName: "widget-test"}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCalculateBookingPrice(t *testing.T) {
	svc := newTestService(t, fakePricingLoader{pricing: testActivityPricing()}, fakePromoValidator{})

	result, err := svc.CalculateBookingPrice(context.Background(), PriceRequest{
		ActivityID: testActivityPricing().Activity.ID,
		Adults:     2,
		Children:   2,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}

	// 2 adults at 25 + 2 children at 15 = 80; 8% tax.
	if result.Breakdown.Subtotal != 80 {
		t.Fatalf("expected subtotal 80, got %v", result.Breakdown.Subtotal)
	}
	if result.Breakdown.Tax != 6.40 || result.Breakdown.Total != 86.40 {
		t.Fatalf("expected tax 6.40 total 86.40, got tax=%v total=%v", result.Breakdown.Tax, result.Breakdown.Total)
	}
	if result.Currency != enums.CurrencyUSD {
		t.Fatalf("expected USD, got %v", result.Currency)
	}
	if result.Promo != nil {
		t.Fatal("no promo submitted, none should be reported")
	}
}

func TestCalculateBookingPriceWithValidPromo(t *testing.T) {
	promo := &models.PromoCode{
		ID:            uuid.New(),
		Code:          "SAVE20",
		DiscountType:  enums.DiscountTypeFixedAmount,
		DiscountValue: 20,
		Scope:         enums.PromoScopeAll,
		IsActive:      true,
	}
	svc := newTestService(t,
		fakePricingLoader{pricing: testActivityPricing()},
		fakePromoValidator{validation: promos.Validation{IsValid: true, Promo: promo}},
	)

	result, err := svc.CalculateBookingPrice(context.Background(), PriceRequest{
		ActivityID: testActivityPricing().Activity.ID,
		Adults:     4,
		PromoCode:  "SAVE20",
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}

	if result.Promo == nil || !result.Promo.IsValid {
		t.Fatalf("expected valid promo result, got %+v", result.Promo)
	}
	if floatVal(result.Breakdown.DiscountAmount) != 20 {
		t.Fatalf("expected discount 20, got %v", result.Breakdown.DiscountAmount)
	}
	// 100 - 20 = 80 after discount.
	if result.Breakdown.Tax != 6.40 || result.Breakdown.Total != 86.40 {
		t.Fatalf("expected tax 6.40 total 86.40, got tax=%v total=%v", result.Breakdown.Tax, result.Breakdown.Total)
	}
}

func TestCalculateBookingPriceInvalidPromoStillPrices(t *testing.T) {
	svc := newTestService(t,
		fakePricingLoader{pricing: testActivityPricing()},
		fakePromoValidator{validation: promos.Validation{IsValid: false, Message: "promo code has expired"}},
	)

	result, err := svc.CalculateBookingPrice(context.Background(), PriceRequest{
		ActivityID: testActivityPricing().Activity.ID,
		Adults:     1,
		PromoCode:  "OLD",
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}

	if result.Promo == nil || result.Promo.IsValid {
		t.Fatalf("expected invalid promo result, got %+v", result.Promo)
	}
	if result.Promo.Message != "promo code has expired" {
		t.Fatalf("unexpected message %q", result.Promo.Message)
	}
	if result.Breakdown.DiscountAmount != nil {
		t.Fatal("invalid promo must not discount")
	}
	if result.Breakdown.Total != 27.00 {
		t.Fatalf("expected total 27.00, got %v", result.Breakdown.Total)
	}
}

func TestCalculateBookingPriceMissingOrgUsesDefaultTaxRate(t *testing.T) {
	svc := newTestServiceWithOrgs(t,
		fakePricingLoader{pricing: testActivityPricing()},
		fakePromoValidator{},
		fakeOrgLoader{org: nil},
		0.05,
	)

	result, err := svc.CalculateBookingPrice(context.Background(), PriceRequest{
		ActivityID: testActivityPricing().Activity.ID,
		Adults:     1,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}

	// 25 subtotal taxed at the configured fallback rate.
	if result.Breakdown.Tax != 1.25 || result.Breakdown.Total != 26.25 {
		t.Fatalf("expected tax 1.25 total 26.25, got tax=%v total=%v", result.Breakdown.Tax, result.Breakdown.Total)
	}
	if result.Currency != enums.CurrencyUSD {
		t.Fatalf("expected USD fallback, got %v", result.Currency)
	}
}

func TestCalculateBookingPriceZeroPartySize(t *testing.T) {
	svc := newTestService(t, fakePricingLoader{pricing: testActivityPricing()}, fakePromoValidator{})

	_, err := svc.CalculateBookingPrice(context.Background(), PriceRequest{
		ActivityID: testActivityPricing().Activity.ID,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCalculateBookingPriceMissingActivity(t *testing.T) {
	svc := newTestService(t, fakePricingLoader{}, fakePromoValidator{})

	_, err := svc.CalculateBookingPrice(context.Background(), PriceRequest{
		ActivityID: uuid.New(),
		Adults:     1,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetCheckoutPriceID(t *testing.T) {
	activityPricing := testActivityPricing()

	if got := GetCheckoutPriceID(activityPricing, enums.TierTypeAdult); got == nil || *got != "price_adult" {
		t.Fatalf("expected price_adult, got %v", got)
	}
	// Child tier has no mapped price.
	if got := GetCheckoutPriceID(activityPricing, enums.TierTypeChild); got != nil {
		t.Fatalf("expected nil, got %v", *got)
	}
	if got := GetCheckoutPriceID(activityPricing, enums.TierTypeVeteran); got != nil {
		t.Fatalf("expected nil for absent tier, got %v", *got)
	}
}

func TestDefaultTierForPrefersFlaggedDefault(t *testing.T) {
	activityPricing := testActivityPricing()
	activityPricing.Tiers = append(activityPricing.Tiers, models.PricingTier{
		ID:       uuid.New(),
		TierType: enums.TierTypeAdult,
		Label:    "Adult Off-Peak",
		IsActive: true,
	})

	tier := DefaultTierFor(activityPricing, enums.TierTypeAdult)
	if tier == nil || tier.Label != "Adult" {
		t.Fatalf("expected flagged default, got %+v", tier)
	}
}
