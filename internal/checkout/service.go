package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
)

type bookingRepository interface {
	FindBookingByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	FindHoldByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.ReservationHold, error)
	SetBookingStripeSession(ctx context.Context, bookingID uuid.UUID, stripeSessionID string) error
}

// StartInput asks for a payment session for an already-reserved booking.
type StartInput struct {
	BookingID   uuid.UUID
	Description string
	SuccessURL  string
	CancelURL   string
}

// Session is the client-facing handle for a created checkout session.
type Session struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Service creates Stripe checkout sessions for pending bookings.
type Service interface {
	Start(ctx context.Context, input StartInput) (*Session, error)
}

type service struct {
	repo   bookingRepository
	stripe StripeCheckoutClient
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the checkout service.
func NewService(repo bookingRepository, stripeClient StripeCheckoutClient, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if stripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		stripe: stripeClient,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start creates the payment session. The session expires alongside the hold
// so Stripe never collects for capacity that already went back on sale.
func (s *service) Start(ctx context.Context, input StartInput) (*Session, error) {
	if input.SuccessURL == "" || input.CancelURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "success and cancel urls are required")
	}

	booking, err := s.repo.FindBookingByID(ctx, input.BookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load booking")
	}
	if booking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	if booking.Status != enums.BookingStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not awaiting payment").
			WithDetails(map[string]any{"status": booking.Status.String()})
	}

	hold, err := s.repo.FindHoldByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load hold")
	}
	if hold == nil || hold.Status != enums.HoldStatusReserved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "hold is no longer active")
	}
	if !hold.ExpiresAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "hold has expired")
	}

	params := s.sessionParams(booking, hold, input)
	created, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	if err := s.repo.SetBookingStripeSession(ctx, booking.ID, created.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach session to booking")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"booking_id":        booking.ID.String(),
		"stripe_session_id": created.ID,
	})
	s.logg.Info(logCtx, "checkout session created")
	return &Session{SessionID: created.ID, URL: created.URL}, nil
}

func (s *service) sessionParams(booking *models.Booking, hold *models.ReservationHold, input StartInput) *stripe.CheckoutSessionParams {
	description := input.Description
	if description == "" {
		description = fmt.Sprintf("Booking for %d", booking.PartySize)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(input.SuccessURL),
		CancelURL:  stripe.String(input.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(booking.Currency.String())),
					UnitAmount: stripe.Int64(dollarsToMinorUnits(booking.Total)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"booking_id": booking.ID.String(),
		},
	}
	if booking.CustomerEmail != nil {
		params.CustomerEmail = stripe.String(*booking.CustomerEmail)
	}

	// Stripe enforces a 30 minute floor on session expiry.
	expiresAt := hold.ExpiresAt
	if min := s.now().Add(30 * time.Minute); expiresAt.Before(min) {
		expiresAt = min
	}
	params.ExpiresAt = stripe.Int64(expiresAt.Unix())
	return params
}

// dollarsToMinorUnits converts a rounded dollar amount to integer cents
// without float drift.
func dollarsToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}
