package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/api/middleware"
	"github.com/bookingtms/bookingtms-backend/internal/activities"
	"github.com/bookingtms/bookingtms-backend/internal/checkout"
	"github.com/bookingtms/bookingtms-backend/internal/pricing"
	"github.com/bookingtms/bookingtms-backend/internal/reservations"
	"github.com/bookingtms/bookingtms-backend/internal/widget"
	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Level: logger.ParseLevel("error")})
}

type fakeWidgetService struct {
	pricing     *activities.ActivityPricing
	result      *widget.PriceResult
	calculated  *widget.PriceRequest
	invalidated []uuid.UUID
}

func (f *fakeWidgetService) GetActivityPricing(_ context.Context, activityID uuid.UUID) (*activities.ActivityPricing, error) {
	if f.pricing != nil && f.pricing.Activity.ID == activityID {
		return f.pricing, nil
	}
	return nil, nil
}

func (f *fakeWidgetService) CalculateBookingPrice(_ context.Context, req widget.PriceRequest) (*widget.PriceResult, error) {
	f.calculated = &req
	if f.result == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "activity pricing not available")
	}
	return f.result, nil
}

func (f *fakeWidgetService) InvalidateActivityPricing(_ context.Context, activityID uuid.UUID) {
	f.invalidated = append(f.invalidated, activityID)
}

type fakeReservationService struct {
	reserveInput *reservations.ReserveInput
	reserveErr   error
	result       *reservations.ReserveResult
	bookings     map[uuid.UUID]*models.Booking
	cancelled    []uuid.UUID
	confirmed    []uuid.UUID
}

func (f *fakeReservationService) Reserve(_ context.Context, input reservations.ReserveInput) (*reservations.ReserveResult, error) {
	f.reserveInput = &input
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	return f.result, nil
}

func (f *fakeReservationService) Confirm(_ context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	f.confirmed = append(f.confirmed, bookingID)
	return f.bookings[bookingID], nil
}

func (f *fakeReservationService) Cancel(_ context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	f.cancelled = append(f.cancelled, bookingID)
	booking, ok := f.bookings[bookingID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	out := *booking
	out.Status = enums.BookingStatusCancelled
	return &out, nil
}

func (f *fakeReservationService) GetBooking(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	booking, ok := f.bookings[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return booking, nil
}

type fakeCheckoutService struct {
	session *checkout.Session
	err     error
	started []checkout.StartInput
}

func (f *fakeCheckoutService) Start(_ context.Context, input checkout.StartInput) (*checkout.Session, error) {
	f.started = append(f.started, input)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func fixtureActivityPricing(orgID uuid.UUID) *activities.ActivityPricing {
	activityID := uuid.New()
	return &activities.ActivityPricing{
		Activity: models.Activity{ID: activityID, OrganizationID: orgID, Name: "Escape Room", IsActive: true},
		Tiers: []models.PricingTier{
			{ID: uuid.New(), ActivityID: activityID, TierType: enums.TierTypeAdult, Label: "Adult", UnitPrice: 30, IsActive: true, IsDefault: true},
		},
	}
}

func fixturePriceResult() *widget.PriceResult {
	return &widget.PriceResult{
		Lines: []pricing.Line{{TierID: uuid.New(), TierType: "adult", Label: "Adult", UnitPrice: 30, Quantity: 2, LineTotal: 60}},
		Breakdown: pricing.Breakdown{
			PricePerPerson: 30,
			PartySize:      2,
			Subtotal:       60,
			TaxRate:        0.08,
			Tax:            4.8,
			Total:          64.8,
		},
		Currency: enums.CurrencyUSD,
	}
}

func widgetRequest(method, target string, body any, orgID uuid.UUID) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithOrganizationID(req.Context(), orgID))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx, ok := req.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if dest != nil {
		if err := json.Unmarshal(envelope.Data, dest); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func TestWidgetPricingScopesToTenant(t *testing.T) {
	orgID := uuid.New()
	svc := &fakeWidgetService{pricing: fixtureActivityPricing(orgID)}
	handler := WidgetPricing(svc, testLogger())

	req := widgetRequest(http.MethodGet, "/api/v1/widget/activities/x/pricing", nil, orgID)
	req = withURLParam(req, "activityID", svc.pricing.Activity.ID.String())
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Same activity requested by a different tenant reads as missing.
	req = widgetRequest(http.MethodGet, "/api/v1/widget/activities/x/pricing", nil, uuid.New())
	req = withURLParam(req, "activityID", svc.pricing.Activity.ID.String())
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign tenant, got %d", rec.Code)
	}
}

func TestWidgetQuoteReturnsBreakdown(t *testing.T) {
	orgID := uuid.New()
	svc := &fakeWidgetService{pricing: fixtureActivityPricing(orgID), result: fixturePriceResult()}
	handler := WidgetQuote(svc, testLogger())

	body := map[string]any{
		"activity_id": svc.pricing.Activity.ID.String(),
		"adults":      2,
	}
	rec := httptest.NewRecorder()
	handler(rec, widgetRequest(http.MethodPost, "/api/v1/widget/quote", body, orgID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result widget.PriceResult
	decodeData(t, rec, &result)
	if result.Breakdown.Total != 64.8 {
		t.Fatalf("unexpected total: %v", result.Breakdown.Total)
	}
	if svc.calculated == nil || svc.calculated.Adults != 2 {
		t.Fatalf("calculate not invoked with adults=2: %+v", svc.calculated)
	}
}

func TestWidgetQuoteRejectsForeignActivity(t *testing.T) {
	svc := &fakeWidgetService{pricing: fixtureActivityPricing(uuid.New()), result: fixturePriceResult()}
	handler := WidgetQuote(svc, testLogger())

	body := map[string]any{
		"activity_id": svc.pricing.Activity.ID.String(),
		"adults":      2,
	}
	rec := httptest.NewRecorder()
	handler(rec, widgetRequest(http.MethodPost, "/api/v1/widget/quote", body, uuid.New()))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if svc.calculated != nil {
		t.Fatal("calculation should not run for a foreign activity")
	}
}

func TestWidgetPromoValidateInvalidCodeIsOK(t *testing.T) {
	orgID := uuid.New()
	result := fixturePriceResult()
	result.Promo = &widget.PromoResult{Code: "NOPE", IsValid: false, Message: "promo code not found"}
	svc := &fakeWidgetService{pricing: fixtureActivityPricing(orgID), result: result}
	handler := WidgetPromoValidate(svc, testLogger())

	body := map[string]any{
		"activity_id": svc.pricing.Activity.ID.String(),
		"adults":      2,
		"promo_code":  "NOPE",
	}
	rec := httptest.NewRecorder()
	handler(rec, widgetRequest(http.MethodPost, "/api/v1/widget/promos/validate", body, orgID))

	if rec.Code != http.StatusOK {
		t.Fatalf("invalid code must still be 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var promo widget.PromoResult
	decodeData(t, rec, &promo)
	if promo.IsValid {
		t.Fatal("expected is_valid=false")
	}
	if promo.Message != "promo code not found" {
		t.Fatalf("unexpected message: %q", promo.Message)
	}
}

func TestWidgetPromoValidateRequiresCode(t *testing.T) {
	orgID := uuid.New()
	svc := &fakeWidgetService{pricing: fixtureActivityPricing(orgID), result: fixturePriceResult()}
	handler := WidgetPromoValidate(svc, testLogger())

	body := map[string]any{
		"activity_id": svc.pricing.Activity.ID.String(),
		"adults":      1,
	}
	rec := httptest.NewRecorder()
	handler(rec, widgetRequest(http.MethodPost, "/api/v1/widget/promos/validate", body, orgID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing code, got %d", rec.Code)
	}
}

func TestReserveFreezesComputedPrice(t *testing.T) {
	orgID := uuid.New()
	promoID := uuid.New()
	sessionID := uuid.New()

	result := fixturePriceResult()
	discount := 6.0
	result.Breakdown.DiscountAmount = &discount
	result.Promo = &widget.PromoResult{Code: "SAVE10", IsValid: true, PromoCodeID: &promoID}

	widgetSvc := &fakeWidgetService{pricing: fixtureActivityPricing(orgID), result: result}
	booking := &models.Booking{ID: uuid.New(), OrganizationID: orgID, SessionID: sessionID, Status: enums.BookingStatusPending}
	reservationSvc := &fakeReservationService{
		result: &reservations.ReserveResult{
			Booking: booking,
			Hold:    &models.ReservationHold{ID: uuid.New(), BookingID: booking.ID, ExpiresAt: time.Now().Add(15 * time.Minute)},
		},
	}

	body := map[string]any{
		"session_id":  sessionID.String(),
		"activity_id": widgetSvc.pricing.Activity.ID.String(),
		"adults":      2,
		"promo_code":  "SAVE10",
	}
	rec := httptest.NewRecorder()
	Reserve(widgetSvc, reservationSvc, testLogger())(rec, widgetRequest(http.MethodPost, "/api/v1/widget/reservations", body, orgID))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	input := reservationSvc.reserveInput
	if input == nil {
		t.Fatal("reserve not invoked")
	}
	if input.OrganizationID != orgID {
		t.Fatalf("organization not threaded: %s", input.OrganizationID)
	}
	if input.PartySize != 2 || input.Total != 64.8 || input.DiscountAmount != 6.0 {
		t.Fatalf("breakdown not frozen onto input: %+v", input)
	}
	if input.PromoCodeID == nil || *input.PromoCodeID != promoID {
		t.Fatalf("promo reference not frozen: %v", input.PromoCodeID)
	}
}

func TestReserveSurfacesCapacityError(t *testing.T) {
	orgID := uuid.New()
	widgetSvc := &fakeWidgetService{pricing: fixtureActivityPricing(orgID), result: fixturePriceResult()}
	reservationSvc := &fakeReservationService{
		reserveErr: pkgerrors.New(pkgerrors.CodeInsufficientCapacity, "not enough capacity remaining"),
	}

	body := map[string]any{
		"session_id":  uuid.New().String(),
		"activity_id": widgetSvc.pricing.Activity.ID.String(),
		"adults":      2,
	}
	rec := httptest.NewRecorder()
	Reserve(widgetSvc, reservationSvc, testLogger())(rec, widgetRequest(http.MethodPost, "/api/v1/widget/reservations", body, orgID))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInsufficientCapacity) {
		t.Fatalf("unexpected error code: %s", envelope.Error.Code)
	}
}

func TestCancelReservationHidesForeignBooking(t *testing.T) {
	orgID := uuid.New()
	booking := &models.Booking{ID: uuid.New(), OrganizationID: uuid.New(), Status: enums.BookingStatusPending}
	reservationSvc := &fakeReservationService{bookings: map[uuid.UUID]*models.Booking{booking.ID: booking}}

	req := widgetRequest(http.MethodPost, fmt.Sprintf("/api/v1/widget/reservations/%s/cancel", booking.ID), nil, orgID)
	req = withURLParam(req, "bookingID", booking.ID.String())
	rec := httptest.NewRecorder()
	CancelReservation(reservationSvc, testLogger())(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign booking, got %d", rec.Code)
	}
	if len(reservationSvc.cancelled) != 0 {
		t.Fatal("cancel must not run for a foreign booking")
	}
}

func TestCancelReservationReleasesOwnBooking(t *testing.T) {
	orgID := uuid.New()
	booking := &models.Booking{ID: uuid.New(), OrganizationID: orgID, Status: enums.BookingStatusPending}
	reservationSvc := &fakeReservationService{bookings: map[uuid.UUID]*models.Booking{booking.ID: booking}}

	req := widgetRequest(http.MethodPost, fmt.Sprintf("/api/v1/widget/reservations/%s/cancel", booking.ID), nil, orgID)
	req = withURLParam(req, "bookingID", booking.ID.String())
	rec := httptest.NewRecorder()
	CancelReservation(reservationSvc, testLogger())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view reservationView
	decodeData(t, rec, &view)
	if view.Booking.Status != enums.BookingStatusCancelled {
		t.Fatalf("unexpected status: %s", view.Booking.Status)
	}
}

func TestStartCheckoutForExistingBooking(t *testing.T) {
	orgID := uuid.New()
	booking := &models.Booking{ID: uuid.New(), OrganizationID: orgID, Status: enums.BookingStatusPending}
	reservationSvc := &fakeReservationService{bookings: map[uuid.UUID]*models.Booking{booking.ID: booking}}
	checkoutSvc := &fakeCheckoutService{session: &checkout.Session{SessionID: "cs_test_123", URL: "https://stripe.test/cs_test_123"}}

	body := map[string]any{
		"booking_id":  booking.ID.String(),
		"success_url": "https://example.com/ok",
		"cancel_url":  "https://example.com/no",
	}
	rec := httptest.NewRecorder()
	StartCheckout(&fakeWidgetService{}, reservationSvc, checkoutSvc, testLogger())(rec, widgetRequest(http.MethodPost, "/api/v1/widget/checkout", body, orgID))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp checkoutResponse
	decodeData(t, rec, &resp)
	if resp.Session.SessionID != "cs_test_123" {
		t.Fatalf("unexpected session: %+v", resp.Session)
	}
	if len(checkoutSvc.started) != 1 || checkoutSvc.started[0].BookingID != booking.ID {
		t.Fatalf("checkout not started for booking: %+v", checkoutSvc.started)
	}
}

func TestStartCheckoutReservesAndPays(t *testing.T) {
	orgID := uuid.New()
	sessionID := uuid.New()
	widgetSvc := &fakeWidgetService{pricing: fixtureActivityPricing(orgID), result: fixturePriceResult()}
	booking := &models.Booking{ID: uuid.New(), OrganizationID: orgID, SessionID: sessionID, Status: enums.BookingStatusPending}
	reservationSvc := &fakeReservationService{
		bookings: map[uuid.UUID]*models.Booking{booking.ID: booking},
		result: &reservations.ReserveResult{
			Booking: booking,
			Hold:    &models.ReservationHold{ID: uuid.New(), BookingID: booking.ID, ExpiresAt: time.Now().Add(15 * time.Minute)},
		},
	}
	checkoutSvc := &fakeCheckoutService{session: &checkout.Session{SessionID: "cs_test_456", URL: "https://stripe.test/cs_test_456"}}

	body := map[string]any{
		"session_id":  sessionID.String(),
		"activity_id": widgetSvc.pricing.Activity.ID.String(),
		"adults":      2,
		"success_url": "https://example.com/ok",
		"cancel_url":  "https://example.com/no",
	}
	rec := httptest.NewRecorder()
	StartCheckout(widgetSvc, reservationSvc, checkoutSvc, testLogger())(rec, widgetRequest(http.MethodPost, "/api/v1/widget/checkout", body, orgID))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if reservationSvc.reserveInput == nil {
		t.Fatal("reserve not invoked")
	}
	if len(reservationSvc.cancelled) != 0 {
		t.Fatal("successful checkout must not release the hold")
	}
}

func TestStartCheckoutReleasesHoldOnStripeFailure(t *testing.T) {
	orgID := uuid.New()
	sessionID := uuid.New()
	widgetSvc := &fakeWidgetService{pricing: fixtureActivityPricing(orgID), result: fixturePriceResult()}
	booking := &models.Booking{ID: uuid.New(), OrganizationID: orgID, SessionID: sessionID, Status: enums.BookingStatusPending}
	reservationSvc := &fakeReservationService{
		bookings: map[uuid.UUID]*models.Booking{booking.ID: booking},
		result: &reservations.ReserveResult{
			Booking: booking,
			Hold:    &models.ReservationHold{ID: uuid.New(), BookingID: booking.ID, ExpiresAt: time.Now().Add(15 * time.Minute)},
		},
	}
	checkoutSvc := &fakeCheckoutService{err: pkgerrors.New(pkgerrors.CodeDependency, "create checkout session")}

	body := map[string]any{
		"session_id":  sessionID.String(),
		"activity_id": widgetSvc.pricing.Activity.ID.String(),
		"adults":      2,
		"success_url": "https://example.com/ok",
		"cancel_url":  "https://example.com/no",
	}
	rec := httptest.NewRecorder()
	StartCheckout(widgetSvc, reservationSvc, checkoutSvc, testLogger())(rec, widgetRequest(http.MethodPost, "/api/v1/widget/checkout", body, orgID))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(reservationSvc.cancelled) != 1 || reservationSvc.cancelled[0] != booking.ID {
		t.Fatalf("fresh hold not released: %+v", reservationSvc.cancelled)
	}
}

func TestStartCheckoutRequiresBookingOrSession(t *testing.T) {
	body := map[string]any{
		"success_url": "https://example.com/ok",
		"cancel_url":  "https://example.com/no",
	}
	rec := httptest.NewRecorder()
	StartCheckout(&fakeWidgetService{}, &fakeReservationService{}, &fakeCheckoutService{}, testLogger())(rec, widgetRequest(http.MethodPost, "/api/v1/widget/checkout", body, uuid.New()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
