package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/pkg/enums"
)

// PricingTier is a named price point for an activity with optional age
// eligibility. Tiers referenced by bookings are never deleted, only
// deactivated; at most one tier per (activity, tier type) is the default.
type PricingTier struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID  uuid.UUID      `gorm:"column:organization_id;type:uuid;not null;index"`
	ActivityID      uuid.UUID      `gorm:"column:activity_id;type:uuid;not null;index"`
	TierType        enums.TierType `gorm:"column:tier_type;type:tier_type;not null"`
	Label           string         `gorm:"column:label;not null"`
	UnitPrice       float64        `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Currency        enums.Currency `gorm:"column:currency;type:currency;not null;default:'USD'"`
	MinAge          *int           `gorm:"column:min_age"`
	MaxAge          *int           `gorm:"column:max_age"`
	IsActive        bool           `gorm:"column:is_active;not null;default:true"`
	IsDefault       bool           `gorm:"column:is_default;not null;default:false"`
	DisplayOrder    int            `gorm:"column:display_order;not null;default:0"`
	CheckoutPriceID *string        `gorm:"column:checkout_price_id"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// EligibleForAge reports whether a participant of the given age may book
// this tier. A nil age skips the window check entirely.
func (t PricingTier) EligibleForAge(age *int) bool {
	if age == nil {
		return true
	}
	if t.MinAge != nil && *age < *t.MinAge {
		return false
	}
	if t.MaxAge != nil && *age > *t.MaxAge {
		return false
	}
	return true
}
