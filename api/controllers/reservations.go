package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/api/middleware"
	"github.com/bookingtms/bookingtms-backend/api/responses"
	"github.com/bookingtms/bookingtms-backend/api/validators"
	"github.com/bookingtms/bookingtms-backend/internal/reservations"
	"github.com/bookingtms/bookingtms-backend/internal/widget"
	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
)

type reserveRequest struct {
	SessionID     uuid.UUID `json:"session_id" validate:"required"`
	CustomerEmail *string   `json:"customer_email,omitempty" validate:"omitempty,email"`
	quoteRequest
}

// reservationView is the widget-facing shape of a reservation: the booking
// plus its hold expiry and the price the customer was shown.
type reservationView struct {
	Booking *models.Booking         `json:"booking"`
	Hold    *models.ReservationHold `json:"hold"`
	Pricing *widget.PriceResult     `json:"pricing,omitempty"`
}

// Reserve prices the party server-side, then claims capacity. The client
// never submits amounts; the breakdown frozen onto the booking is always the
// one this process computed.
func Reserve(widgetSvc widget.Service, reservationSvc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req reserveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orgID := middleware.OrganizationIDFromContext(ctx)
		priced, err := quoteForOrganization(ctx, widgetSvc, orgID, req.quoteRequest)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := reservationSvc.Reserve(ctx, reserveInputFromQuote(orgID, req.SessionID, req.ActivityID, req.CustomerEmail, priced))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, reservationView{
			Booking: result.Booking,
			Hold:    result.Hold,
			Pricing: priced,
		})
	}
}

// GetReservation returns one booking, scoped to the widget tenant.
func GetReservation(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		booking, err := tenantBooking(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, reservationView{Booking: booking})
	}
}

// CancelReservation releases a booking and its held capacity.
func CancelReservation(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		booking, err := tenantBooking(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		cancelled, err := svc.Cancel(ctx, booking.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		logCtx := logg.WithFields(ctx, map[string]any{"booking_id": cancelled.ID.String()})
		logg.Info(logCtx, "reservation cancelled by widget")
		responses.WriteSuccess(w, reservationView{Booking: cancelled})
	}
}

// reserveInputFromQuote freezes a computed price onto a reservation request.
func reserveInputFromQuote(orgID, sessionID, activityID uuid.UUID, customerEmail *string, priced *widget.PriceResult) reservations.ReserveInput {
	input := reservations.ReserveInput{
		SessionID:      sessionID,
		OrganizationID: orgID,
		ActivityID:     activityID,
		PartySize:      priced.Breakdown.PartySize,
		CustomerEmail:  customerEmail,
		Subtotal:       priced.Breakdown.Subtotal,
		TaxRate:        priced.Breakdown.TaxRate,
		TaxAmount:      priced.Breakdown.Tax,
		Total:          priced.Breakdown.Total,
		Currency:       priced.Currency,
	}
	if priced.Breakdown.DiscountAmount != nil {
		input.DiscountAmount = *priced.Breakdown.DiscountAmount
	}
	if priced.Promo != nil && priced.Promo.IsValid {
		input.PromoCodeID = priced.Promo.PromoCodeID
	}
	return input
}

// tenantBooking loads the path booking and hides bookings that belong to a
// different organization behind a not found.
func tenantBooking(r *http.Request, svc reservations.Service) (*models.Booking, error) {
	bookingID, err := validators.PathUUID(chi.URLParam(r, "bookingID"), "bookingID")
	if err != nil {
		return nil, err
	}
	return tenantBookingByID(r, svc, bookingID)
}

func tenantBookingByID(r *http.Request, svc reservations.Service, bookingID uuid.UUID) (*models.Booking, error) {
	ctx := r.Context()

	booking, err := svc.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.OrganizationID != middleware.OrganizationIDFromContext(ctx) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return booking, nil
}
