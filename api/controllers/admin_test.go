package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/api/middleware"
	"github.com/bookingtms/bookingtms-backend/internal/activities"
	"github.com/bookingtms/bookingtms-backend/internal/promos"
	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/pagination"
)

type fakeActivitiesService struct {
	activities  map[uuid.UUID]*models.Activity
	tiers       []models.PricingTier
	created     *models.PricingTier
	updated     *models.PricingTier
	deactivated []uuid.UUID
}

func (f *fakeActivitiesService) GetActivity(_ context.Context, id uuid.UUID) (*models.Activity, error) {
	activity, ok := f.activities[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "activity not found")
	}
	return activity, nil
}

func (f *fakeActivitiesService) GetActivityPricing(_ context.Context, activityID uuid.UUID) (*activities.ActivityPricing, error) {
	activity, ok := f.activities[activityID]
	if !ok {
		return nil, nil
	}
	return &activities.ActivityPricing{Activity: *activity, Tiers: f.tiers}, nil
}

func (f *fakeActivitiesService) ListActivities(_ context.Context, orgID uuid.UUID, _ pagination.Params) ([]models.Activity, string, error) {
	var out []models.Activity
	for _, activity := range f.activities {
		if activity.OrganizationID == orgID {
			out = append(out, *activity)
		}
	}
	return out, "", nil
}

func (f *fakeActivitiesService) ListTiers(_ context.Context, _ uuid.UUID, _ bool) ([]models.PricingTier, error) {
	return f.tiers, nil
}

func (f *fakeActivitiesService) CreateTier(_ context.Context, tier *models.PricingTier) (*models.PricingTier, error) {
	tier.ID = uuid.New()
	f.created = tier
	return tier, nil
}

func (f *fakeActivitiesService) UpdateTier(_ context.Context, tier *models.PricingTier) (*models.PricingTier, error) {
	f.updated = tier
	return tier, nil
}

func (f *fakeActivitiesService) DeactivateTier(_ context.Context, id uuid.UUID) error {
	f.deactivated = append(f.deactivated, id)
	return nil
}

type fakePromosService struct {
	promos   map[uuid.UUID]*models.PromoCode
	created  *models.PromoCode
	updated  *models.PromoCode
	archived []uuid.UUID
}

func (f *fakePromosService) Validate(_ context.Context, _ uuid.UUID, _ string, _ promos.Purchase) (promos.Validation, error) {
	return promos.Validation{}, nil
}

func (f *fakePromosService) RedeemUsage(_ context.Context, _ uuid.UUID) error { return nil }

func (f *fakePromosService) Get(_ context.Context, id uuid.UUID) (*models.PromoCode, error) {
	promo, ok := f.promos[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
	}
	return promo, nil
}

func (f *fakePromosService) List(_ context.Context, orgID uuid.UUID, _ bool) ([]models.PromoCode, error) {
	var out []models.PromoCode
	for _, promo := range f.promos {
		if promo.OrganizationID == orgID {
			out = append(out, *promo)
		}
	}
	return out, nil
}

func (f *fakePromosService) Create(_ context.Context, promo *models.PromoCode) (*models.PromoCode, error) {
	promo.ID = uuid.New()
	f.created = promo
	return promo, nil
}

func (f *fakePromosService) Update(_ context.Context, promo *models.PromoCode) (*models.PromoCode, error) {
	f.updated = promo
	return promo, nil
}

func (f *fakePromosService) Archive(_ context.Context, id uuid.UUID) error {
	f.archived = append(f.archived, id)
	return nil
}

func adminRequest(method, target string, body any, orgID uuid.UUID) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	ctx := middleware.WithOrganizationID(req.Context(), orgID)
	ctx = middleware.WithAdminUserID(ctx, uuid.New())
	return req.WithContext(ctx)
}

func TestCreateAdminTierScopesToOwnActivity(t *testing.T) {
	orgID := uuid.New()
	activity := &models.Activity{ID: uuid.New(), OrganizationID: orgID, Name: "Escape Room", IsActive: true}
	svc := &fakeActivitiesService{activities: map[uuid.UUID]*models.Activity{activity.ID: activity}}

	body := map[string]any{
		"tier_type":  "adult",
		"label":      "Adult",
		"unit_price": 35.0,
		"is_default": true,
	}
	req := adminRequest(http.MethodPost, "/api/admin/v1/activities/x/tiers", body, orgID)
	req = withURLParam(req, "activityID", activity.ID.String())
	rec := httptest.NewRecorder()
	CreateAdminTier(svc, testLogger())(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.created == nil {
		t.Fatal("create not invoked")
	}
	if svc.created.OrganizationID != orgID || svc.created.ActivityID != activity.ID {
		t.Fatalf("tier not bound to activity owner: %+v", svc.created)
	}
	if svc.created.TierType != enums.TierTypeAdult || !svc.created.IsDefault {
		t.Fatalf("tier fields not mapped: %+v", svc.created)
	}
}

func TestCreateAdminTierRejectsForeignActivity(t *testing.T) {
	activity := &models.Activity{ID: uuid.New(), OrganizationID: uuid.New(), Name: "Escape Room", IsActive: true}
	svc := &fakeActivitiesService{activities: map[uuid.UUID]*models.Activity{activity.ID: activity}}

	body := map[string]any{"tier_type": "adult", "label": "Adult", "unit_price": 35.0}
	req := adminRequest(http.MethodPost, "/api/admin/v1/activities/x/tiers", body, uuid.New())
	req = withURLParam(req, "activityID", activity.ID.String())
	rec := httptest.NewRecorder()
	CreateAdminTier(svc, testLogger())(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if svc.created != nil {
		t.Fatal("create must not run for a foreign activity")
	}
}

func TestCreateAdminPromoBindsOrganization(t *testing.T) {
	orgID := uuid.New()
	svc := &fakePromosService{promos: map[uuid.UUID]*models.PromoCode{}}

	body := map[string]any{
		"code":           "SAVE10",
		"discount_type":  "percentage",
		"discount_value": 10.0,
	}
	rec := httptest.NewRecorder()
	CreateAdminPromo(svc, testLogger())(rec, adminRequest(http.MethodPost, "/api/admin/v1/promos", body, orgID))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.created == nil || svc.created.OrganizationID != orgID {
		t.Fatalf("promo not bound to admin organization: %+v", svc.created)
	}
	if svc.created.Scope != enums.PromoScopeAll {
		t.Fatalf("scope should default to all: %s", svc.created.Scope)
	}
	if !svc.created.IsActive {
		t.Fatal("promo should default active")
	}
}

func TestUpdateAdminPromoKeepsIdentity(t *testing.T) {
	orgID := uuid.New()
	existing := &models.PromoCode{ID: uuid.New(), OrganizationID: orgID, Code: "SAVE10", DiscountType: enums.DiscountTypePercentage, DiscountValue: 10, Scope: enums.PromoScopeAll}
	svc := &fakePromosService{promos: map[uuid.UUID]*models.PromoCode{existing.ID: existing}}

	body := map[string]any{
		"code":           "SAVE15",
		"discount_type":  "percentage",
		"discount_value": 15.0,
	}
	req := adminRequest(http.MethodPut, "/api/admin/v1/promos/x", body, orgID)
	req = withURLParam(req, "promoID", existing.ID.String())
	rec := httptest.NewRecorder()
	UpdateAdminPromo(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.updated == nil || svc.updated.ID != existing.ID || svc.updated.OrganizationID != orgID {
		t.Fatalf("update lost identity: %+v", svc.updated)
	}
	if svc.updated.DiscountValue != 15.0 {
		t.Fatalf("discount not updated: %v", svc.updated.DiscountValue)
	}
}

func TestArchiveAdminPromoHidesForeignPromo(t *testing.T) {
	existing := &models.PromoCode{ID: uuid.New(), OrganizationID: uuid.New(), Code: "SAVE10"}
	svc := &fakePromosService{promos: map[uuid.UUID]*models.PromoCode{existing.ID: existing}}

	req := adminRequest(http.MethodDelete, "/api/admin/v1/promos/x", nil, uuid.New())
	req = withURLParam(req, "promoID", existing.ID.String())
	rec := httptest.NewRecorder()
	ArchiveAdminPromo(svc, testLogger())(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if len(svc.archived) != 0 {
		t.Fatal("archive must not run for a foreign promo")
	}
}

func TestDeactivateAdminTier(t *testing.T) {
	orgID := uuid.New()
	activity := &models.Activity{ID: uuid.New(), OrganizationID: orgID, Name: "Escape Room", IsActive: true}
	svc := &fakeActivitiesService{activities: map[uuid.UUID]*models.Activity{activity.ID: activity}}
	tierID := uuid.New()

	req := adminRequest(http.MethodDelete, "/api/admin/v1/activities/x/tiers/y", nil, orgID)
	req = withURLParam(req, "activityID", activity.ID.String())
	req = withURLParam(req, "tierID", tierID.String())
	rec := httptest.NewRecorder()
	DeactivateAdminTier(svc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.deactivated) != 1 || svc.deactivated[0] != tierID {
		t.Fatalf("deactivate not invoked: %+v", svc.deactivated)
	}
}
