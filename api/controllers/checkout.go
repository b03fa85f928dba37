package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/api/middleware"
	"github.com/bookingtms/bookingtms-backend/api/responses"
	"github.com/bookingtms/bookingtms-backend/api/validators"
	"github.com/bookingtms/bookingtms-backend/internal/checkout"
	"github.com/bookingtms/bookingtms-backend/internal/reservations"
	"github.com/bookingtms/bookingtms-backend/internal/widget"
	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
)

// checkoutRequest starts payment for an existing booking, or reserves and
// pays in one call when session_id and party fields are supplied instead of
// booking_id.
type checkoutRequest struct {
	BookingID     *uuid.UUID `json:"booking_id,omitempty"`
	SessionID     *uuid.UUID `json:"session_id,omitempty"`
	CustomerEmail *string    `json:"customer_email,omitempty" validate:"omitempty,email"`
	quoteRequest
	Description string `json:"description,omitempty" validate:"omitempty,max=200"`
	SuccessURL  string `json:"success_url" validate:"required,url"`
	CancelURL   string `json:"cancel_url" validate:"required,url"`
}

type checkoutResponse struct {
	Booking *models.Booking         `json:"booking"`
	Hold    *models.ReservationHold `json:"hold,omitempty"`
	Session *checkout.Session       `json:"session"`
}

// StartCheckout creates a Stripe session for a reserved booking. Without a
// booking_id it first prices and reserves, so the widget can go straight
// from party selection to payment; a failed session creation releases the
// fresh hold rather than stranding capacity until expiry.
func StartCheckout(widgetSvc widget.Service, reservationSvc reservations.Service, checkoutSvc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var booking *models.Booking
		var hold *models.ReservationHold
		reservedHere := false

		switch {
		case req.BookingID != nil:
			loaded, err := tenantBookingByID(r, reservationSvc, *req.BookingID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			booking = loaded
		case req.SessionID != nil:
			result, err := reserveForCheckout(r, widgetSvc, reservationSvc, req)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			booking = result.Booking
			hold = result.Hold
			reservedHere = true
		default:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "booking_id or session_id is required"))
			return
		}

		session, err := checkoutSvc.Start(ctx, checkout.StartInput{
			BookingID:   booking.ID,
			Description: req.Description,
			SuccessURL:  req.SuccessURL,
			CancelURL:   req.CancelURL,
		})
		if err != nil {
			if reservedHere {
				if _, cancelErr := reservationSvc.Cancel(ctx, booking.ID); cancelErr != nil {
					logg.Error(logg.WithField(ctx, "booking_id", booking.ID.String()),
						"failed to release reservation after checkout error", cancelErr)
				}
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		logCtx := logg.WithFields(ctx, map[string]any{
			"booking_id":        booking.ID.String(),
			"stripe_session_id": session.SessionID,
		})
		logg.Info(logCtx, "widget checkout started")
		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Booking: booking,
			Hold:    hold,
			Session: session,
		})
	}
}

func reserveForCheckout(r *http.Request, widgetSvc widget.Service, reservationSvc reservations.Service, req checkoutRequest) (*reservations.ReserveResult, error) {
	ctx := r.Context()

	orgID := middleware.OrganizationIDFromContext(ctx)
	priced, err := quoteForOrganization(ctx, widgetSvc, orgID, req.quoteRequest)
	if err != nil {
		return nil, err
	}

	return reservationSvc.Reserve(ctx, reserveInputFromQuote(orgID, *req.SessionID, req.ActivityID, req.CustomerEmail, priced))
}
