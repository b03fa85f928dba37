package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/pkg/enums"
)

// Booking snapshots the priced party at reservation time. Monetary fields
// are dollars rounded to cents; the checkout handoff converts Total to the
// currency's minor unit.
type Booking struct {
	ID               uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID   uuid.UUID           `gorm:"column:organization_id;type:uuid;not null;index"`
	ActivityID       uuid.UUID           `gorm:"column:activity_id;type:uuid;not null;index"`
	SessionID        uuid.UUID           `gorm:"column:session_id;type:uuid;not null;index"`
	PartySize        int                 `gorm:"column:party_size;not null"`
	Status           enums.BookingStatus `gorm:"column:status;type:booking_status;not null;default:'pending'"`
	CustomerEmail    *string             `gorm:"column:customer_email"`
	Subtotal         float64             `gorm:"column:subtotal;type:numeric(10,2);not null"`
	DiscountAmount   float64             `gorm:"column:discount_amount;type:numeric(10,2);not null;default:0"`
	TaxRate          float64             `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	TaxAmount        float64             `gorm:"column:tax_amount;type:numeric(10,2);not null"`
	Total            float64             `gorm:"column:total;type:numeric(10,2);not null"`
	Currency         enums.Currency      `gorm:"column:currency;type:currency;not null;default:'USD'"`
	PromoCodeID      *uuid.UUID          `gorm:"column:promo_code_id;type:uuid"`
	StripeSessionID  *string             `gorm:"column:stripe_session_id;index"`
	ConfirmedAt      *time.Time          `gorm:"column:confirmed_at"`
	CancelledAt      *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
