package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/api/middleware"
	"github.com/bookingtms/bookingtms-backend/api/responses"
	"github.com/bookingtms/bookingtms-backend/api/validators"
	"github.com/bookingtms/bookingtms-backend/internal/pricing"
	"github.com/bookingtms/bookingtms-backend/internal/widget"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
)

type quoteLineRequest struct {
	TierID   uuid.UUID `json:"tier_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1,max=100"`
	Age      *int      `json:"age,omitempty" validate:"omitempty,min=0,max=130"`
}

// quoteRequest is also embedded by the reservation and checkout payloads, so
// activity_id presence is checked in quoteForOrganization rather than by tag.
type quoteRequest struct {
	ActivityID  uuid.UUID          `json:"activity_id"`
	Adults      int                `json:"adults" validate:"min=0,max=100"`
	Children    int                `json:"children" validate:"min=0,max=100"`
	CustomTiers []quoteLineRequest `json:"custom_tiers,omitempty" validate:"omitempty,max=20,dive"`
	PromoCode   string             `json:"promo_code,omitempty" validate:"omitempty,max=64"`
	Age         *int               `json:"age,omitempty" validate:"omitempty,min=0,max=130"`
}

func (q quoteRequest) toPriceRequest() widget.PriceRequest {
	req := widget.PriceRequest{
		ActivityID: q.ActivityID,
		Adults:     q.Adults,
		Children:   q.Children,
		PromoCode:  q.PromoCode,
		Age:        q.Age,
	}
	for _, line := range q.CustomTiers {
		req.CustomTiers = append(req.CustomTiers, pricing.LineRequest{
			TierID:   line.TierID,
			Quantity: line.Quantity,
			Age:      line.Age,
		})
	}
	return req
}

// WidgetPricing serves the tier list the widget renders for one activity.
func WidgetPricing(svc widget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		activityID, err := validators.PathUUID(chi.URLParam(r, "activityID"), "activityID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pricingData, err := svc.GetActivityPricing(ctx, activityID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if pricingData == nil || pricingData.Activity.OrganizationID != middleware.OrganizationIDFromContext(ctx) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "activity not found"))
			return
		}

		responses.WriteSuccess(w, pricingData)
	}
}

// WidgetQuote prices a party composition, applying an optional promo code.
func WidgetQuote(svc widget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req quoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := quoteForOrganization(ctx, svc, middleware.OrganizationIDFromContext(ctx), req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// WidgetPromoValidate reports whether a promo code applies to the submitted
// party. An invalid code is a 200 with is_valid=false, never an error.
func WidgetPromoValidate(svc widget.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req quoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if req.PromoCode == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "promo_code is required"))
			return
		}

		result, err := quoteForOrganization(ctx, svc, middleware.OrganizationIDFromContext(ctx), req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		promo := result.Promo
		if promo == nil {
			promo = &widget.PromoResult{Code: req.PromoCode}
		}
		responses.WriteSuccess(w, promo)
	}
}

// quoteForOrganization prices the request and enforces that the activity
// belongs to the authenticated widget tenant.
func quoteForOrganization(ctx context.Context, svc widget.Service, orgID uuid.UUID, req quoteRequest) (*widget.PriceResult, error) {
	if req.ActivityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "activity_id is required")
	}
	activityPricing, err := svc.GetActivityPricing(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	if activityPricing == nil || activityPricing.Activity.OrganizationID != orgID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "activity not found")
	}
	return svc.CalculateBookingPrice(ctx, req.toPriceRequest())
}
