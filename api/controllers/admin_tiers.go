package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/api/middleware"
	"github.com/bookingtms/bookingtms-backend/api/responses"
	"github.com/bookingtms/bookingtms-backend/api/validators"
	"github.com/bookingtms/bookingtms-backend/internal/activities"
	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
	"github.com/bookingtms/bookingtms-backend/pkg/pagination"
)

type tierRequest struct {
	TierType        string  `json:"tier_type" validate:"required,max=32"`
	Label           string  `json:"label" validate:"required,max=100"`
	UnitPrice       float64 `json:"unit_price" validate:"min=0"`
	Currency        string  `json:"currency,omitempty" validate:"omitempty,max=3"`
	MinAge          *int    `json:"min_age,omitempty" validate:"omitempty,min=0,max=130"`
	MaxAge          *int    `json:"max_age,omitempty" validate:"omitempty,min=0,max=130"`
	IsDefault       bool    `json:"is_default"`
	DisplayOrder    int     `json:"display_order" validate:"min=0"`
	CheckoutPriceID *string `json:"checkout_price_id,omitempty" validate:"omitempty,max=255"`
}

func (t tierRequest) toModel(orgID, activityID uuid.UUID) *models.PricingTier {
	return &models.PricingTier{
		OrganizationID:  orgID,
		ActivityID:      activityID,
		TierType:        enums.TierType(t.TierType),
		Label:           t.Label,
		UnitPrice:       t.UnitPrice,
		Currency:        enums.Currency(t.Currency),
		MinAge:          t.MinAge,
		MaxAge:          t.MaxAge,
		IsActive:        true,
		IsDefault:       t.IsDefault,
		DisplayOrder:    t.DisplayOrder,
		CheckoutPriceID: t.CheckoutPriceID,
	}
}

type activityPage struct {
	Activities []models.Activity `json:"activities"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ListAdminActivities lists the admin's own activities, one cursor page at a
// time.
func ListAdminActivities(svc activities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		page := pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}

		list, next, err := svc.ListActivities(ctx, middleware.OrganizationIDFromContext(ctx), page)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, activityPage{Activities: list, NextCursor: next})
	}
}

// ListAdminTiers lists an activity's tiers, inactive ones included when
// include_inactive=true.
func ListAdminTiers(svc activities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		activity, err := adminActivity(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		includeInactive := r.URL.Query().Get("include_inactive") == "true"
		tiers, err := svc.ListTiers(ctx, activity.ID, includeInactive)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tiers"))
			return
		}
		responses.WriteSuccess(w, tiers)
	}
}

// CreateAdminTier adds a pricing tier to one of the admin's activities.
func CreateAdminTier(svc activities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		activity, err := adminActivity(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req tierRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		created, err := svc.CreateTier(ctx, req.toModel(activity.OrganizationID, activity.ID))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		logCtx := logg.WithFields(ctx, map[string]any{
			"activity_id": activity.ID.String(),
			"tier_id":     created.ID.String(),
		})
		logg.Info(logCtx, "pricing tier created")
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// UpdateAdminTier replaces a tier's pricing fields.
func UpdateAdminTier(svc activities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		activity, err := adminActivity(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		tierID, err := validators.PathUUID(chi.URLParam(r, "tierID"), "tierID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req tierRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		tier := req.toModel(activity.OrganizationID, activity.ID)
		tier.ID = tierID
		updated, err := svc.UpdateTier(ctx, tier)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// DeactivateAdminTier hides a tier from new quotes without deleting it.
func DeactivateAdminTier(svc activities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if _, err := adminActivity(r, svc); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		tierID, err := validators.PathUUID(chi.URLParam(r, "tierID"), "tierID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.DeactivateTier(ctx, tierID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// adminActivity loads the path activity and hides other tenants' activities
// behind a not found.
func adminActivity(r *http.Request, svc activities.Service) (*models.Activity, error) {
	ctx := r.Context()

	activityID, err := validators.PathUUID(chi.URLParam(r, "activityID"), "activityID")
	if err != nil {
		return nil, err
	}

	activity, err := svc.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if activity.OrganizationID != middleware.OrganizationIDFromContext(ctx) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "activity not found")
	}
	return activity, nil
}
