package promos

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	"github.com/bookingtms/bookingtms-backend/pkg/types"
)

func timePtr(v time.Time) *time.Time { return &v }
func intPtr(v int) *int              { return &v }
func floatPtr(v float64) *float64    { return &v }

func activePromo() *models.PromoCode {
	return &models.PromoCode{
		ID:            uuid.New(),
		Code:          "SAVE20",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: 20,
		Scope:         enums.PromoScopeAll,
		ValidFrom:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
}

func purchaseAt(day time.Time) Purchase {
	return Purchase{Subtotal: 100, Now: day}
}

func TestEvaluateValidPromo(t *testing.T) {
	promo := activePromo()
	got := Evaluate(promo, purchaseAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
	if !got.IsValid {
		t.Fatalf("expected valid, got %q", got.Message)
	}
	if got.Promo != promo {
		t.Fatal("validation must carry the promo through")
	}
}

func TestEvaluateNilAndArchivedReadAsNotFound(t *testing.T) {
	if got := Evaluate(nil, purchaseAt(time.Now())); got.IsValid || got.Message != "promo code not found" {
		t.Fatalf("nil promo: %+v", got)
	}

	promo := activePromo()
	promo.IsArchived = true
	if got := Evaluate(promo, purchaseAt(time.Now())); got.IsValid || got.Message != "promo code not found" {
		t.Fatalf("archived promo: %+v", got)
	}
}

func TestEvaluateExpiredPromo(t *testing.T) {
	promo := activePromo()
	promo.ValidUntil = timePtr(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	got := Evaluate(promo, purchaseAt(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	if got.IsValid {
		t.Fatal("expected invalid")
	}
	if got.Message != "promo code has expired" {
		t.Fatalf("unexpected message %q", got.Message)
	}
}

func TestEvaluateNotYetValid(t *testing.T) {
	promo := activePromo()
	got := Evaluate(promo, purchaseAt(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
	if got.IsValid || got.Message != "promo code is not yet valid" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestEvaluateInactive(t *testing.T) {
	promo := activePromo()
	promo.IsActive = false
	got := Evaluate(promo, purchaseAt(time.Now()))
	if got.IsValid || got.Message != "promo code is not active" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestEvaluateUsageCap(t *testing.T) {
	promo := activePromo()
	promo.MaxUses = intPtr(10)
	promo.UsesCount = 10
	got := Evaluate(promo, purchaseAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
	if got.IsValid || got.Message != "promo code usage limit reached" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestEvaluateActivityScope(t *testing.T) {
	inScope := uuid.New()
	promo := activePromo()
	promo.Scope = enums.PromoScopeActivities
	promo.ActivityIDs = types.UUIDList{inScope}

	purchase := purchaseAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	purchase.ActivityID = uuid.New()
	if got := Evaluate(promo, purchase); got.IsValid {
		t.Fatal("out-of-scope activity must be rejected")
	}

	purchase.ActivityID = inScope
	if got := Evaluate(promo, purchase); !got.IsValid {
		t.Fatalf("in-scope activity rejected: %q", got.Message)
	}
}

func TestEvaluateVenueScope(t *testing.T) {
	venue := uuid.New()
	promo := activePromo()
	promo.Scope = enums.PromoScopeVenues
	promo.VenueIDs = types.UUIDList{venue}

	purchase := purchaseAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	purchase.VenueID = venue
	if got := Evaluate(promo, purchase); !got.IsValid {
		t.Fatalf("in-scope venue rejected: %q", got.Message)
	}
}

func TestEvaluateMinPurchase(t *testing.T) {
	promo := activePromo()
	promo.MinPurchaseAmount = floatPtr(150)

	got := Evaluate(promo, purchaseAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
	if got.IsValid || got.Message != "purchase does not meet the promo code minimum" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestEvaluateIgnoresTierTypeList(t *testing.T) {
	// Tier types are stored on the code but do not gate validation; the
	// discount still applies to the whole subtotal.
	promo := activePromo()
	promo.TierTypes = types.TierTypeList{enums.TierTypeVeteran}

	got := Evaluate(promo, purchaseAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
	if !got.IsValid {
		t.Fatalf("tier-typed promo must stay valid for any purchase: %q", got.Message)
	}
	if discount := DiscountAmount(got.Promo, 100); discount != 20 {
		t.Fatalf("expected full-subtotal discount 20, got %v", discount)
	}
}

func TestDiscountAmountByType(t *testing.T) {
	percentage := activePromo()
	if got := DiscountAmount(percentage, 100); got != 20 {
		t.Fatalf("percentage: expected 20, got %v", got)
	}

	fixed := activePromo()
	fixed.DiscountType = enums.DiscountTypeFixedAmount
	fixed.DiscountValue = 150
	if got := DiscountAmount(fixed, 100); got != 100 {
		t.Fatalf("fixed discount must clamp to subtotal, got %v", got)
	}

	free := activePromo()
	free.DiscountType = enums.DiscountTypeFreeUnit
	if got := DiscountAmount(free, 100); got != 100 {
		t.Fatalf("free unit comps the subtotal, got %v", got)
	}

	if got := DiscountAmount(percentage, 0); got != 0 {
		t.Fatalf("zero subtotal yields zero discount, got %v", got)
	}
}
