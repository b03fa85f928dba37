package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/api/middleware"
	"github.com/bookingtms/bookingtms-backend/api/responses"
	"github.com/bookingtms/bookingtms-backend/api/validators"
	"github.com/bookingtms/bookingtms-backend/internal/promos"
	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
	"github.com/bookingtms/bookingtms-backend/pkg/types"
)

type promoRequest struct {
	Code               string      `json:"code" validate:"required,max=64"`
	DiscountType       string      `json:"discount_type" validate:"required,max=32"`
	DiscountValue      float64     `json:"discount_value" validate:"min=0"`
	Scope              string      `json:"scope,omitempty" validate:"omitempty,max=32"`
	ActivityIDs        []uuid.UUID `json:"activity_ids,omitempty" validate:"omitempty,max=100"`
	VenueIDs           []uuid.UUID `json:"venue_ids,omitempty" validate:"omitempty,max=100"`
	TierTypes          []string    `json:"tier_types,omitempty" validate:"omitempty,max=10"`
	MaxUses            *int        `json:"max_uses,omitempty" validate:"omitempty,min=1"`
	MaxUsesPerCustomer *int        `json:"max_uses_per_customer,omitempty" validate:"omitempty,min=1"`
	MinPurchaseAmount  *float64    `json:"min_purchase_amount,omitempty" validate:"omitempty,min=0"`
	ValidFrom          *time.Time  `json:"valid_from,omitempty"`
	ValidUntil         *time.Time  `json:"valid_until,omitempty"`
	IsActive           *bool       `json:"is_active,omitempty"`
}

func (p promoRequest) toModel(orgID uuid.UUID) *models.PromoCode {
	promo := &models.PromoCode{
		OrganizationID:     orgID,
		Code:               p.Code,
		DiscountType:       enums.DiscountType(p.DiscountType),
		DiscountValue:      p.DiscountValue,
		Scope:              enums.PromoScopeAll,
		ActivityIDs:        types.UUIDList(p.ActivityIDs),
		VenueIDs:           types.UUIDList(p.VenueIDs),
		MaxUses:            p.MaxUses,
		MaxUsesPerCustomer: p.MaxUsesPerCustomer,
		MinPurchaseAmount:  p.MinPurchaseAmount,
		IsActive:           true,
	}
	if p.Scope != "" {
		promo.Scope = enums.PromoScope(p.Scope)
	}
	for _, tierType := range p.TierTypes {
		promo.TierTypes = append(promo.TierTypes, enums.TierType(tierType))
	}
	if p.ValidFrom != nil {
		promo.ValidFrom = *p.ValidFrom
	} else {
		promo.ValidFrom = time.Now().UTC()
	}
	promo.ValidUntil = p.ValidUntil
	if p.IsActive != nil {
		promo.IsActive = *p.IsActive
	}
	return promo
}

// ListAdminPromos lists the organization's promo codes. Archived codes are
// included only when include_archived=true.
func ListAdminPromos(svc promos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		includeArchived := r.URL.Query().Get("include_archived") == "true"
		list, err := svc.List(ctx, middleware.OrganizationIDFromContext(ctx), includeArchived)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list promo codes"))
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetAdminPromo returns one promo code, scoped to the admin's organization.
func GetAdminPromo(svc promos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		promo, err := adminPromo(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, promo)
	}
}

// CreateAdminPromo creates a promo code for the admin's organization.
func CreateAdminPromo(svc promos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req promoRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		created, err := svc.Create(ctx, req.toModel(middleware.OrganizationIDFromContext(ctx)))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		logCtx := logg.WithFields(ctx, map[string]any{
			"promo_code_id": created.ID.String(),
			"code":          created.Code,
		})
		logg.Info(logCtx, "promo code created")
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// UpdateAdminPromo replaces a promo code's rule fields. Usage counts are
// preserved by the repository, not the payload.
func UpdateAdminPromo(svc promos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		existing, err := adminPromo(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req promoRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		promo := req.toModel(existing.OrganizationID)
		promo.ID = existing.ID
		updated, err := svc.Update(ctx, promo)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// ArchiveAdminPromo retires a promo code. Existing bookings keep their
// reference; the code just stops validating.
func ArchiveAdminPromo(svc promos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		existing, err := adminPromo(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Archive(ctx, existing.ID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// adminPromo loads the path promo and hides other tenants' codes behind a
// not found.
func adminPromo(r *http.Request, svc promos.Service) (*models.PromoCode, error) {
	ctx := r.Context()

	promoID, err := validators.PathUUID(chi.URLParam(r, "promoID"), "promoID")
	if err != nil {
		return nil, err
	}

	promo, err := svc.Get(ctx, promoID)
	if err != nil {
		return nil, err
	}
	if promo.OrganizationID != middleware.OrganizationIDFromContext(ctx) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
	}
	return promo, nil
}
