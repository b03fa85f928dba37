package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/pkg/enums"
)

// ReservationHold is a temporary capacity decrement pending payment.
// Holds still in reserved state past ExpiresAt are swept back onto the
// session by the expiry job.
type ReservationHold struct {
	ID         uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID  uuid.UUID        `gorm:"column:session_id;type:uuid;not null;index"`
	BookingID  uuid.UUID        `gorm:"column:booking_id;type:uuid;not null;index"`
	PartySize  int              `gorm:"column:party_size;not null"`
	Status     enums.HoldStatus `gorm:"column:status;type:hold_status;not null;default:'reserved'"`
	ExpiresAt  time.Time        `gorm:"column:expires_at;not null;index"`
	ReleasedAt *time.Time       `gorm:"column:released_at"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
