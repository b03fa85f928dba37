package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateActivity    OutboxAggregateType = "activity"
	AggregatePromoCode   OutboxAggregateType = "promo_code"
	AggregateSession     OutboxAggregateType = "booking_session"
	AggregateReservation OutboxAggregateType = "reservation_hold"
	AggregateBooking     OutboxAggregateType = "booking"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateActivity,
	AggregatePromoCode,
	AggregateSession,
	AggregateReservation,
	AggregateBooking,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox aggregate type %q", value)
}

// OutboxEventType names the domain events flowing through the outbox.
type OutboxEventType string

const (
	EventPricingUpdated     OutboxEventType = "pricing.updated"
	EventPromoUpdated       OutboxEventType = "promo.updated"
	EventReservationExpired OutboxEventType = "reservation.expired"
	EventBookingConfirmed   OutboxEventType = "booking.confirmed"
	EventBookingCancelled   OutboxEventType = "booking.cancelled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPricingUpdated,
	EventPromoUpdated,
	EventReservationExpired,
	EventBookingConfirmed,
	EventBookingCancelled,
}

// IsValid reports whether the value is a known OutboxEventType.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxStatus tracks publication state of an outbox row.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// IsValid reports whether the value is a known OutboxStatus.
func (s OutboxStatus) IsValid() bool {
	switch s {
	case OutboxStatusPending, OutboxStatusPublished, OutboxStatusFailed:
		return true
	}
	return false
}
