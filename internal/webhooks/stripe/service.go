package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/bookingtms/bookingtms-backend/internal/reservations"
	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
)

const (
	eventCheckoutCompleted = "checkout.session.completed"
	eventCheckoutExpired   = "checkout.session.expired"
)

type bookingResolver interface {
	FindBookingByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	FindBookingByStripeSession(ctx context.Context, stripeSessionID string) (*models.Booking, error)
}

type promoRedeemer interface {
	RedeemUsage(ctx context.Context, id uuid.UUID) error
}

// Service turns Stripe checkout events into booking transitions.
type Service interface {
	VerifyAndHandle(ctx context.Context, payload []byte, signature string) error
	HandleEvent(ctx context.Context, event stripe.Event) error
}

// ServiceParams collects the webhook service dependencies.
type ServiceParams struct {
	Reservations  reservations.Service
	Bookings      bookingResolver
	Promos        promoRedeemer
	Guard         *IdempotencyGuard
	SigningSecret string
	Logger        *logger.Logger
}

type service struct {
	reservations  reservations.Service
	bookings      bookingResolver
	promos        promoRedeemer
	guard         *IdempotencyGuard
	signingSecret string
	logg          *logger.Logger
}

// NewService builds the Stripe webhook service.
func NewService(params ServiceParams) (Service, error) {
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservation service required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("booking resolver required")
	}
	if params.SigningSecret == "" {
		return nil, fmt.Errorf("signing secret required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		reservations:  params.Reservations,
		bookings:      params.Bookings,
		promos:        params.Promos,
		guard:         params.Guard,
		signingSecret: params.SigningSecret,
		logg:          params.Logger,
	}, nil
}

// VerifyAndHandle checks the payload signature, claims the event id, and
// dispatches the event. Duplicate deliveries are acknowledged without work.
func (s *service) VerifyAndHandle(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.signingSecret)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook signature")
	}

	if s.guard != nil {
		release, claimed, err := s.guard.Begin(ctx, event.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim webhook event")
		}
		if !claimed {
			s.logg.Info(s.logg.WithField(ctx, "stripe_event_id", event.ID), "duplicate webhook delivery skipped")
			return nil
		}
		if err := s.HandleEvent(ctx, event); err != nil {
			release()
			return err
		}
		return nil
	}

	return s.HandleEvent(ctx, event)
}

// HandleEvent dispatches a verified event by type. Unhandled types are
// acknowledged so Stripe stops retrying them.
func (s *service) HandleEvent(ctx context.Context, event stripe.Event) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
	})

	switch string(event.Type) {
	case eventCheckoutCompleted:
		return s.handleCheckoutCompleted(logCtx, event)
	case eventCheckoutExpired:
		return s.handleCheckoutExpired(logCtx, event)
	default:
		s.logg.Info(logCtx, "unhandled stripe event type")
		return nil
	}
}

func (s *service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	session, err := parseCheckoutSession(event)
	if err != nil {
		return err
	}

	booking, err := s.resolveBooking(ctx, session)
	if err != nil {
		return err
	}
	if booking == nil {
		// An unknown session is not retryable; log and acknowledge.
		s.logg.Warn(s.logg.WithField(ctx, "stripe_session_id", session.ID), "completed checkout has no booking")
		return nil
	}

	confirmed, err := s.reservations.Confirm(ctx, booking.ID)
	if err != nil {
		return err
	}

	if s.promos != nil && confirmed.PromoCodeID != nil {
		if err := s.promos.RedeemUsage(ctx, *confirmed.PromoCodeID); err != nil {
			// The payment already settled; a spent promo must not fail the
			// confirmation.
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"booking_id":    confirmed.ID.String(),
				"promo_code_id": confirmed.PromoCodeID.String(),
				"error":         err.Error(),
			}), "promo redemption failed after payment")
		}
	}

	s.logg.Info(s.logg.WithField(ctx, "booking_id", confirmed.ID.String()), "booking confirmed from checkout")
	return nil
}

func (s *service) handleCheckoutExpired(ctx context.Context, event stripe.Event) error {
	session, err := parseCheckoutSession(event)
	if err != nil {
		return err
	}

	booking, err := s.resolveBooking(ctx, session)
	if err != nil {
		return err
	}
	if booking == nil {
		return nil
	}

	cancelled, err := s.reservations.Cancel(ctx, booking.ID)
	if err != nil {
		// The expiry sweep may have already released the hold.
		if pkgerrors.As(err).Code() == pkgerrors.CodeStateConflict {
			s.logg.Info(s.logg.WithField(ctx, "booking_id", booking.ID.String()), "booking already released before checkout expiry")
			return nil
		}
		return err
	}

	s.logg.Info(s.logg.WithField(ctx, "booking_id", cancelled.ID.String()), "booking cancelled from expired checkout")
	return nil
}

func (s *service) resolveBooking(ctx context.Context, session *stripe.CheckoutSession) (*models.Booking, error) {
	if raw := session.Metadata["booking_id"]; raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id in session metadata")
		}
		booking, err := s.bookings.FindBookingByID(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load booking")
		}
		if booking != nil {
			return booking, nil
		}
	}
	booking, err := s.bookings.FindBookingByStripeSession(ctx, session.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load booking by session")
	}
	return booking, nil
}

func parseCheckoutSession(event stripe.Event) (*stripe.CheckoutSession, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session payload")
	}
	return &session, nil
}
