package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	"github.com/bookingtms/bookingtms-backend/pkg/types"
)

// PromoCode is an organization-scoped discount rule. The pricing core only
// reads promo codes; UsesCount is incremented by the booking-completion flow.
type PromoCode struct {
	ID                 uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID     uuid.UUID          `gorm:"column:organization_id;type:uuid;not null;index:idx_promo_org_code,unique"`
	Code               string             `gorm:"column:code;not null;index:idx_promo_org_code,unique"`
	DiscountType       enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null"`
	DiscountValue      float64            `gorm:"column:discount_value;type:numeric(10,2);not null"`
	Scope              enums.PromoScope   `gorm:"column:scope;type:promo_scope;not null;default:'all'"`
	ActivityIDs        types.UUIDList     `gorm:"column:activity_ids;type:jsonb;serializer:json"`
	VenueIDs           types.UUIDList     `gorm:"column:venue_ids;type:jsonb;serializer:json"`
	TierTypes          types.TierTypeList `gorm:"column:tier_types;type:jsonb;serializer:json"`
	MaxUses            *int               `gorm:"column:max_uses"`
	MaxUsesPerCustomer *int               `gorm:"column:max_uses_per_customer"`
	UsesCount          int                `gorm:"column:uses_count;not null;default:0"`
	MinPurchaseAmount  *float64           `gorm:"column:min_purchase_amount;type:numeric(10,2)"`
	ValidFrom          time.Time          `gorm:"column:valid_from;not null"`
	ValidUntil         *time.Time         `gorm:"column:valid_until"`
	IsActive           bool               `gorm:"column:is_active;not null;default:true"`
	IsArchived         bool               `gorm:"column:is_archived;not null;default:false"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
