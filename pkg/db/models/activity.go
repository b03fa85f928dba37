package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity is a bookable experience offered at a venue.
type Activity struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null;index"`
	VenueID        uuid.UUID `gorm:"column:venue_id;type:uuid;not null;index"`
	Name           string    `gorm:"column:name;not null"`
	Description    *string   `gorm:"column:description"`
	DurationMins   int       `gorm:"column:duration_mins;not null;default:60"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
