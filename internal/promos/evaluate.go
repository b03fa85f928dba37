package promos

import (
	"time"

	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/internal/pricing"
	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
)

// Validation is the outcome of checking a promo code against a purchase. An
// invalid code is a normal result, not an error; Message explains why to the
// customer. Promo is populated only when the code is valid.
type Validation struct {
	IsValid bool              `json:"is_valid"`
	Message string            `json:"message,omitempty"`
	Promo   *models.PromoCode `json:"-"`
}

// Purchase carries the booking context a promo is evaluated against.
type Purchase struct {
	ActivityID uuid.UUID
	VenueID    uuid.UUID
	Subtotal   float64
	Now        time.Time
}

func valid(promo *models.PromoCode) Validation {
	return Validation{IsValid: true, Promo: promo}
}

func invalid(message string) Validation {
	return Validation{IsValid: false, Message: message}
}

// Evaluate applies every promo rule in order and returns the first failure.
// A nil or archived promo reads as not found so callers cannot distinguish
// deleted codes from ones that never existed.
func Evaluate(promo *models.PromoCode, purchase Purchase) Validation {
	if promo == nil || promo.IsArchived {
		return invalid("promo code not found")
	}
	if !promo.IsActive {
		return invalid("promo code is not active")
	}

	now := purchase.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if now.Before(promo.ValidFrom) {
		return invalid("promo code is not yet valid")
	}
	if promo.ValidUntil != nil && now.After(*promo.ValidUntil) {
		return invalid("promo code has expired")
	}

	if promo.MaxUses != nil && promo.UsesCount >= *promo.MaxUses {
		return invalid("promo code usage limit reached")
	}

	switch promo.Scope {
	case enums.PromoScopeActivities:
		if !promo.ActivityIDs.Contains(purchase.ActivityID) {
			return invalid("promo code does not apply to this activity")
		}
	case enums.PromoScopeVenues:
		if !promo.VenueIDs.Contains(purchase.VenueID) {
			return invalid("promo code does not apply to this venue")
		}
	}

	// TierTypes is stored on the promo but intentionally not checked here:
	// a tier-restricted code still discounts the whole subtotal.
	if promo.MinPurchaseAmount != nil && purchase.Subtotal < *promo.MinPurchaseAmount {
		return invalid("purchase does not meet the promo code minimum")
	}

	return valid(promo)
}

// DiscountAmount converts a valid promo into a dollar discount against the
// subtotal. The result never exceeds the subtotal.
func DiscountAmount(promo *models.PromoCode, subtotal float64) float64 {
	if promo == nil || subtotal <= 0 {
		return 0
	}

	var discount float64
	switch promo.DiscountType {
	case enums.DiscountTypePercentage:
		discount = pricing.ApplyPercentageDiscount(subtotal, promo.DiscountValue)
	case enums.DiscountTypeFixedAmount:
		discount = promo.DiscountValue
	case enums.DiscountTypeFreeUnit:
		discount = subtotal
	default:
		return 0
	}

	if discount > subtotal {
		return subtotal
	}
	if discount < 0 {
		return 0
	}
	return discount
}
