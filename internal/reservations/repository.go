package reservations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
)

// Repository owns session capacity, holds, and bookings. Capacity mutations
// are guarded updates so concurrent reservations can never oversell.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindSessionByID loads a session. Missing ids return (nil, nil).
func (r *Repository) FindSessionByID(ctx context.Context, id uuid.UUID) (*models.BookingSession, error) {
	var session models.BookingSession
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// DecrementCapacity takes partySize units from the session only when enough
// remain and the session is open. Returns false when the guard fails, which
// is how concurrent overbooking attempts lose.
func (r *Repository) DecrementCapacity(ctx context.Context, sessionID uuid.UUID, partySize int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BookingSession{}).
		Where("id = ? AND is_closed = ? AND capacity_remaining >= ?", sessionID, false, partySize).
		UpdateColumn("capacity_remaining", gorm.Expr("capacity_remaining - ?", partySize))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RestoreCapacity returns units to the session, capped at the configured
// capacity so repeated releases cannot inflate it.
func (r *Repository) RestoreCapacity(ctx context.Context, sessionID uuid.UUID, units int) error {
	return r.db.WithContext(ctx).
		Model(&models.BookingSession{}).
		Where("id = ?", sessionID).
		UpdateColumn("capacity_remaining", gorm.Expr(
			"CASE WHEN capacity_remaining + ? > capacity THEN capacity ELSE capacity_remaining + ? END",
			units, units,
		)).Error
}

// CreateBooking inserts a pending booking with its money snapshot.
func (r *Repository) CreateBooking(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

// CreateHold inserts a reserved hold against the booking.
func (r *Repository) CreateHold(ctx context.Context, hold *models.ReservationHold) error {
	return r.db.WithContext(ctx).Create(hold).Error
}

// FindHoldByID loads a hold. Missing ids return (nil, nil).
func (r *Repository) FindHoldByID(ctx context.Context, id uuid.UUID) (*models.ReservationHold, error) {
	var hold models.ReservationHold
	err := r.db.WithContext(ctx).First(&hold, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

// FindHoldByBookingID loads the hold backing a booking.
func (r *Repository) FindHoldByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.ReservationHold, error) {
	var hold models.ReservationHold
	err := r.db.WithContext(ctx).First(&hold, "booking_id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

// FindBookingByID loads a booking. Missing ids return (nil, nil).
func (r *Repository) FindBookingByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindBookingByStripeSession resolves a booking from the checkout session id.
func (r *Repository) FindBookingByStripeSession(ctx context.Context, stripeSessionID string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).First(&booking, "stripe_session_id = ?", stripeSessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListExpiredHolds returns reserved holds whose deadline has passed.
func (r *Repository) ListExpiredHolds(ctx context.Context, cutoff time.Time, limit int) ([]models.ReservationHold, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", enums.HoldStatusReserved, cutoff).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var holds []models.ReservationHold
	if err := query.Find(&holds).Error; err != nil {
		return nil, err
	}
	return holds, nil
}

// TransitionHold moves a hold from one status to another. Returns false
// when the hold was not in the expected state, which makes release paths
// idempotent.
func (r *Repository) TransitionHold(ctx context.Context, holdID uuid.UUID, from, to enums.HoldStatus, releasedAt *time.Time) (bool, error) {
	updates := map[string]any{"status": to}
	if releasedAt != nil {
		updates["released_at"] = *releasedAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.ReservationHold{}).
		Where("id = ? AND status = ?", holdID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// TransitionBooking moves a booking from one status to another. Returns
// false when the booking was not in the expected state.
func (r *Repository) TransitionBooking(ctx context.Context, bookingID uuid.UUID, from, to enums.BookingStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetBookingStripeSession attaches the checkout session id to the booking.
func (r *Repository) SetBookingStripeSession(ctx context.Context, bookingID uuid.UUID, stripeSessionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("stripe_session_id", stripeSessionID).Error
}
