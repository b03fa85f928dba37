package promos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes promo code validation and administration.
type Service interface {
	Validate(ctx context.Context, orgID uuid.UUID, code string, purchase Purchase) (Validation, error)
	RedeemUsage(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.PromoCode, error)
	List(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]models.PromoCode, error)
	Create(ctx context.Context, promo *models.PromoCode) (*models.PromoCode, error)
	Update(ctx context.Context, promo *models.PromoCode) (*models.PromoCode, error)
	Archive(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   *Repository
	tx     txRunner
	events eventEmitter
	now    func() time.Time
}

// NewService builds a promo service backed by the provided repository. The
// emitter may be nil for read-only callers.
func NewService(repo *Repository, tx txRunner, events eventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promo repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Validate resolves a code and runs every rule against the purchase. An
// invalid code is reported through Validation, never as an error; errors are
// reserved for infrastructure failures.
func (s *service) Validate(ctx context.Context, orgID uuid.UUID, code string, purchase Purchase) (Validation, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return invalid("promo code not found"), nil
	}

	promo, err := s.repo.FindByCode(ctx, orgID, trimmed)
	if err != nil {
		return Validation{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load promo code")
	}

	if purchase.Now.IsZero() {
		purchase.Now = s.now()
	}
	return Evaluate(promo, purchase), nil
}

// RedeemUsage records one use of the promo. A lost race on the final use
// surfaces as a conflict so the booking flow can re-quote without the promo.
func (s *service) RedeemUsage(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.IncrementUsage(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment promo usage")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "promo code usage limit reached")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PromoCode, error) {
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load promo code")
	}
	if promo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
	}
	return promo, nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]models.PromoCode, error) {
	return s.repo.ListByOrganization(ctx, orgID, includeArchived)
}

func (s *service) Create(ctx context.Context, promo *models.PromoCode) (*models.PromoCode, error) {
	if err := validatePromoShape(promo); err != nil {
		return nil, err
	}
	promo.Code = strings.ToUpper(strings.TrimSpace(promo.Code))

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		scoped := s.repo.WithTx(tx)
		created, err := scoped.Create(ctx, promo)
		if err != nil {
			return err
		}
		return s.emitPromoUpdated(ctx, tx, created)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create promo code")
	}
	return promo, nil
}

func (s *service) Update(ctx context.Context, promo *models.PromoCode) (*models.PromoCode, error) {
	if err := validatePromoShape(promo); err != nil {
		return nil, err
	}
	promo.Code = strings.ToUpper(strings.TrimSpace(promo.Code))

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		scoped := s.repo.WithTx(tx)
		updated, err := scoped.Update(ctx, promo)
		if err != nil {
			return err
		}
		return s.emitPromoUpdated(ctx, tx, updated)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update promo code")
	}
	return promo, nil
}

// Archive retires a promo. Archived codes stop validating but stay queryable
// for bookings that already used them.
func (s *service) Archive(ctx context.Context, id uuid.UUID) error {
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load promo code")
	}
	if promo == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		scoped := s.repo.WithTx(tx)
		if err := scoped.Archive(ctx, id); err != nil {
			return err
		}
		return s.emitPromoUpdated(ctx, tx, promo)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "archive promo code")
	}
	return nil
}

func (s *service) emitPromoUpdated(ctx context.Context, tx *gorm.DB, promo *models.PromoCode) error {
	if s.events == nil {
		return nil
	}
	now := s.now()
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPromoUpdated,
		AggregateType: enums.AggregatePromoCode,
		AggregateID:   promo.ID,
		OccurredAt:    now,
		Data: payloads.PromoUpdatedEvent{
			PromoCodeID:    promo.ID,
			OrganizationID: promo.OrganizationID,
			Code:           promo.Code,
			UpdatedAt:      now,
		},
	})
}

func validatePromoShape(promo *models.PromoCode) error {
	if promo == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo code payload required")
	}
	if strings.TrimSpace(promo.Code) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if !promo.DiscountType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown discount type")
	}
	if promo.DiscountValue < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount value cannot be negative")
	}
	if promo.DiscountType == enums.DiscountTypePercentage && promo.DiscountValue > 100 {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if !promo.Scope.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown promo scope")
	}
	if promo.Scope == enums.PromoScopeActivities && len(promo.ActivityIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "activity-scoped promo requires activity ids")
	}
	if promo.Scope == enums.PromoScopeVenues && len(promo.VenueIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "venue-scoped promo requires venue ids")
	}
	if promo.ValidUntil != nil && promo.ValidUntil.Before(promo.ValidFrom) {
		return pkgerrors.New(pkgerrors.CodeValidation, "valid_until precedes valid_from")
	}
	return nil
}
