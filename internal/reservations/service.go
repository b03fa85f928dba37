package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
	"github.com/bookingtms/bookingtms-backend/pkg/metrics"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ReserveInput is a priced reservation request. Money fields are the
// breakdown snapshot frozen onto the booking.
type ReserveInput struct {
	SessionID uuid.UUID
	// OrganizationID and ActivityID, when set, must match the session's
	// owners. The widget layer passes both so a session id cannot be
	// combined with another tenant's pricing.
	OrganizationID uuid.UUID
	ActivityID     uuid.UUID
	PartySize      int
	CustomerEmail  *string
	Subtotal       float64
	DiscountAmount float64
	TaxRate        float64
	TaxAmount      float64
	Total          float64
	Currency       enums.Currency
	PromoCodeID    *uuid.UUID
}

// ReserveResult carries the created booking and its hold.
type ReserveResult struct {
	Booking *models.Booking
	Hold    *models.ReservationHold
}

// Service implements the capacity reservation protocol: hold on reserve,
// confirm on payment, release on cancel or expiry.
type Service interface {
	Reserve(ctx context.Context, input ReserveInput) (*ReserveResult, error)
	Confirm(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
}

type service struct {
	repo    *Repository
	tx      txRunner
	events  eventEmitter
	metrics *metrics.ReservationMetrics
	logg    *logger.Logger
	holdTTL time.Duration
	now     func() time.Time
}

// NewService builds the reservation service.
func NewService(repo *Repository, tx txRunner, events eventEmitter, reservationMetrics *metrics.ReservationMetrics, logg *logger.Logger, holdTTL time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if holdTTL <= 0 {
		holdTTL = 15 * time.Minute
	}
	return &service{
		repo:    repo,
		tx:      tx,
		events:  events,
		metrics: reservationMetrics,
		logg:    logg,
		holdTTL: holdTTL,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Reserve decrements session capacity and creates a pending booking with a
// hold. The decrement is a guarded update, so when two parties race for the
// last seats exactly one wins; the loser gets an insufficient capacity
// error and no booking row.
func (s *service) Reserve(ctx context.Context, input ReserveInput) (*ReserveResult, error) {
	if input.PartySize <= 0 {
		s.countAttempt("invalid_request")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party size must be at least 1")
	}

	var result *ReserveResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		session, err := repo.FindSessionByID(ctx, input.SessionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session")
		}
		if session == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		if session.IsClosed {
			return pkgerrors.New(pkgerrors.CodeSessionClosed, "session is closed")
		}
		if input.OrganizationID != uuid.Nil && session.OrganizationID != input.OrganizationID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		if input.ActivityID != uuid.Nil && session.ActivityID != input.ActivityID {
			return pkgerrors.New(pkgerrors.CodeValidation, "session does not belong to activity")
		}

		ok, err := repo.DecrementCapacity(ctx, session.ID, input.PartySize)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement capacity")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientCapacity, "not enough capacity remaining").
				WithDetails(map[string]any{
					"session_id": session.ID.String(),
					"requested":  input.PartySize,
				})
		}

		booking := &models.Booking{
			ID:             uuid.New(),
			OrganizationID: session.OrganizationID,
			ActivityID:     session.ActivityID,
			SessionID:      session.ID,
			PartySize:      input.PartySize,
			Status:         enums.BookingStatusPending,
			CustomerEmail:  input.CustomerEmail,
			Subtotal:       input.Subtotal,
			DiscountAmount: input.DiscountAmount,
			TaxRate:        input.TaxRate,
			TaxAmount:      input.TaxAmount,
			Total:          input.Total,
			Currency:       input.Currency,
			PromoCodeID:    input.PromoCodeID,
		}
		if booking.Currency == "" {
			booking.Currency = enums.CurrencyUSD
		}
		if err := repo.CreateBooking(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create booking")
		}

		hold := &models.ReservationHold{
			ID:        uuid.New(),
			SessionID: session.ID,
			BookingID: booking.ID,
			PartySize: input.PartySize,
			Status:    enums.HoldStatusReserved,
			ExpiresAt: s.now().Add(s.holdTTL),
		}
		if err := repo.CreateHold(ctx, hold); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create hold")
		}

		result = &ReserveResult{Booking: booking, Hold: hold}
		return nil
	})
	if err != nil {
		s.countAttempt(attemptOutcome(err))
		return nil, err
	}

	s.countAttempt("success")
	logCtx := s.logg.WithSessionID(ctx, input.SessionID.String())
	s.logg.Info(logCtx, "capacity reserved")
	return result, nil
}

// Confirm finalizes a pending booking after payment. Re-confirming an
// already confirmed booking is a no-op so payment webhook retries stay safe.
func (s *service) Confirm(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	var confirmed *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		booking, err := repo.FindBookingByID(ctx, bookingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load booking")
		}
		if booking == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		if booking.Status == enums.BookingStatusConfirmed {
			confirmed = booking
			return nil
		}
		if booking.Status != enums.BookingStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking cannot be confirmed").
				WithDetails(map[string]any{"status": booking.Status.String()})
		}

		hold, err := repo.FindHoldByBookingID(ctx, booking.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load hold")
		}
		if hold == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "booking has no hold")
		}

		ok, err := repo.TransitionHold(ctx, hold.ID, enums.HoldStatusReserved, enums.HoldStatusConfirmed, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirm hold")
		}
		if !ok {
			// The expiry sweep got here first.
			return pkgerrors.New(pkgerrors.CodeStateConflict, "hold is no longer active").
				WithDetails(map[string]any{"hold_status": hold.Status.String()})
		}

		now := s.now()
		ok, err = repo.TransitionBooking(ctx, booking.ID, enums.BookingStatusPending, enums.BookingStatusConfirmed,
			map[string]any{"confirmed_at": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirm booking")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking cannot be confirmed")
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingConfirmed,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Data: payloads.BookingLifecycleEvent{
				BookingID: booking.ID,
				SessionID: booking.SessionID,
				PartySize: booking.PartySize,
				Total:     booking.Total,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit booking confirmed")
		}

		booking.Status = enums.BookingStatusConfirmed
		booking.ConfirmedAt = &now
		confirmed = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// Cancel releases a pending or confirmed booking and restores its capacity.
// Expired holds already returned their capacity, so only live holds restore.
func (s *service) Cancel(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	var cancelled *models.Booking
	var released int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		released = 0

		booking, err := repo.FindBookingByID(ctx, bookingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load booking")
		}
		if booking == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		if booking.Status == enums.BookingStatusCancelled {
			cancelled = booking
			return nil
		}
		if booking.Status == enums.BookingStatusExpired {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking already expired")
		}

		hold, err := repo.FindHoldByBookingID(ctx, booking.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load hold")
		}

		now := s.now()
		if hold != nil && !hold.Status.IsTerminal() {
			ok, err := repo.TransitionHold(ctx, hold.ID, hold.Status, enums.HoldStatusCancelled, &now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel hold")
			}
			if ok {
				if err := repo.RestoreCapacity(ctx, hold.SessionID, hold.PartySize); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore capacity")
				}
				released = hold.PartySize
			}
		}

		ok, err := repo.TransitionBooking(ctx, booking.ID, booking.Status, enums.BookingStatusCancelled,
			map[string]any{"cancelled_at": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel booking")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking cannot be cancelled")
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCancelled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Data: payloads.BookingLifecycleEvent{
				BookingID: booking.ID,
				SessionID: booking.SessionID,
				PartySize: booking.PartySize,
				Total:     booking.Total,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit booking cancelled")
		}

		booking.Status = enums.BookingStatusCancelled
		booking.CancelledAt = &now
		cancelled = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	if released > 0 {
		s.metrics.AddReleased("cancelled", released)
	}
	return cancelled, nil
}

func (s *service) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	booking, err := s.repo.FindBookingByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load booking")
	}
	if booking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return booking, nil
}

func (s *service) countAttempt(outcome string) {
	s.metrics.IncAttempt(outcome)
}

func attemptOutcome(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case pkgerrors.CodeInsufficientCapacity:
		return "insufficient_capacity"
	case pkgerrors.CodeSessionClosed:
		return "session_closed"
	case pkgerrors.CodeNotFound:
		return "session_not_found"
	default:
		return "error"
	}
}
