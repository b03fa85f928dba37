package payloads

import (
	"time"

	"github.com/google/uuid"
)

// PricingUpdatedEvent tells widget caches that an activity's tiers changed.
type PricingUpdatedEvent struct {
	ActivityID     uuid.UUID `json:"activityId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// PromoUpdatedEvent is emitted when a promo code is created, edited, or
// archived.
type PromoUpdatedEvent struct {
	PromoCodeID    uuid.UUID `json:"promoCodeId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Code           string    `json:"code"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// BookingLifecycleEvent is the shared payload of booking.confirmed and
// booking.cancelled.
type BookingLifecycleEvent struct {
	BookingID uuid.UUID `json:"bookingId"`
	SessionID uuid.UUID `json:"sessionId"`
	PartySize int       `json:"partySize"`
	Total     float64   `json:"total"`
}

// ReservationExpiredEvent reports a hold released by the expiry sweep.
type ReservationExpiredEvent struct {
	HoldID    uuid.UUID `json:"holdId"`
	BookingID uuid.UUID `json:"bookingId"`
	SessionID uuid.UUID `json:"sessionId"`
	PartySize int       `json:"partySize"`
	ExpiredAt time.Time `json:"expiredAt"`
}
