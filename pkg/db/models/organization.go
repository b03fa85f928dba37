package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/pkg/enums"
)

// Organization represents the canonical tenant model. Every venue, activity,
// promo code, and booking is scoped to exactly one organization, and each
// organization settles in a single currency.
type Organization struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string         `gorm:"column:name;not null"`
	Slug          string         `gorm:"column:slug;uniqueIndex;not null"`
	Currency      enums.Currency `gorm:"column:currency;type:currency;not null;default:'USD'"`
	TaxRate       float64        `gorm:"column:tax_rate;type:numeric(6,4);not null;default:0.08"`
	WidgetKeyHash string         `gorm:"column:widget_key_hash;not null"`
	IsActive      bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
