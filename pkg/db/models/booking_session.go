package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingSession is a bookable time slot. CapacityRemaining never goes
// negative: every decrement is a conditional update inside a transaction.
type BookingSession struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID    uuid.UUID `gorm:"column:organization_id;type:uuid;not null;index"`
	ActivityID        uuid.UUID `gorm:"column:activity_id;type:uuid;not null;index"`
	StartsAt          time.Time `gorm:"column:starts_at;not null;index"`
	EndsAt            time.Time `gorm:"column:ends_at;not null"`
	Capacity          int       `gorm:"column:capacity;not null"`
	CapacityRemaining int       `gorm:"column:capacity_remaining;not null"`
	IsClosed          bool      `gorm:"column:is_closed;not null;default:false"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
