package activities

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox/payloads"
	"github.com/bookingtms/bookingtms-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ActivityPricing bundles an activity with its active tiers, the shape the
// widget renders.
type ActivityPricing struct {
	Activity models.Activity      `json:"activity"`
	Tiers    []models.PricingTier `json:"tiers"`
}

// Service exposes activity and tier administration.
type Service interface {
	GetActivity(ctx context.Context, id uuid.UUID) (*models.Activity, error)
	GetActivityPricing(ctx context.Context, activityID uuid.UUID) (*ActivityPricing, error)
	ListActivities(ctx context.Context, orgID uuid.UUID, page pagination.Params) ([]models.Activity, string, error)
	ListTiers(ctx context.Context, activityID uuid.UUID, includeInactive bool) ([]models.PricingTier, error)
	CreateTier(ctx context.Context, tier *models.PricingTier) (*models.PricingTier, error)
	UpdateTier(ctx context.Context, tier *models.PricingTier) (*models.PricingTier, error)
	DeactivateTier(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   *Repository
	tx     txRunner
	events eventEmitter
	now    func() time.Time
}

// NewService builds an activity service backed by the provided stack. The
// emitter may be nil for read-only callers.
func NewService(repo *Repository, tx txRunner, events eventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("activity repository required")
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

func (s *service) GetActivity(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load activity")
	}
	if activity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "activity not found")
	}
	return activity, nil
}

// GetActivityPricing returns nil when the activity does not exist or is
// inactive, which the widget treats as "no pricing configured".
func (s *service) GetActivityPricing(ctx context.Context, activityID uuid.UUID) (*ActivityPricing, error) {
	activity, err := s.repo.FindByID(ctx, activityID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load activity")
	}
	if activity == nil || !activity.IsActive {
		return nil, nil
	}

	tiers, err := s.repo.ListActiveTiers(ctx, activityID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pricing tiers")
	}
	return &ActivityPricing{Activity: *activity, Tiers: tiers}, nil
}

// ListActivities returns one cursor page plus the cursor for the next, empty
// when the page is the last one.
func (s *service) ListActivities(ctx context.Context, orgID uuid.UUID, page pagination.Params) ([]models.Activity, string, error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(page.Limit)
	rows, err := s.repo.ListByOrganization(ctx, orgID, cursor, pagination.LimitWithBuffer(page.Limit))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list activities")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (s *service) ListTiers(ctx context.Context, activityID uuid.UUID, includeInactive bool) ([]models.PricingTier, error) {
	if includeInactive {
		return s.repo.ListAllTiers(ctx, activityID)
	}
	return s.repo.ListActiveTiers(ctx, activityID)
}

// CreateTier inserts a tier, demoting any existing default of the same tier
// type in the same transaction.
func (s *service) CreateTier(ctx context.Context, tier *models.PricingTier) (*models.PricingTier, error) {
	if err := validateTierShape(tier); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		scoped := s.repo.WithTx(tx)
		if tier.IsDefault {
			if err := scoped.ClearDefaultTier(ctx, tier.ActivityID, tier.TierType.String()); err != nil {
				return err
			}
		}
		if _, err := scoped.CreateTier(ctx, tier); err != nil {
			return err
		}
		return s.emitPricingUpdated(ctx, tx, scoped, tier.ActivityID)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create pricing tier")
	}
	return tier, nil
}

func (s *service) UpdateTier(ctx context.Context, tier *models.PricingTier) (*models.PricingTier, error) {
	if err := validateTierShape(tier); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		scoped := s.repo.WithTx(tx)
		if tier.IsDefault {
			if err := scoped.ClearDefaultTier(ctx, tier.ActivityID, tier.TierType.String()); err != nil {
				return err
			}
		}
		if _, err := scoped.UpdateTier(ctx, tier); err != nil {
			return err
		}
		return s.emitPricingUpdated(ctx, tx, scoped, tier.ActivityID)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update pricing tier")
	}
	return tier, nil
}

// DeactivateTier hides a tier from new quotes. Existing bookings keep their
// frozen prices.
func (s *service) DeactivateTier(ctx context.Context, id uuid.UUID) error {
	tier, err := s.repo.FindTierByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pricing tier")
	}
	if tier == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "pricing tier not found")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		scoped := s.repo.WithTx(tx)
		if err := scoped.DeactivateTier(ctx, id); err != nil {
			return err
		}
		return s.emitPricingUpdated(ctx, tx, scoped, tier.ActivityID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate pricing tier")
	}
	return nil
}

func (s *service) emitPricingUpdated(ctx context.Context, tx *gorm.DB, scoped *Repository, activityID uuid.UUID) error {
	if s.events == nil {
		return nil
	}
	activity, err := scoped.FindByID(ctx, activityID)
	if err != nil {
		return err
	}
	if activity == nil {
		return fmt.Errorf("activity %s not found", activityID)
	}
	now := s.now()
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPricingUpdated,
		AggregateType: enums.AggregateActivity,
		AggregateID:   activityID,
		OccurredAt:    now,
		Data: payloads.PricingUpdatedEvent{
			ActivityID:     activityID,
			OrganizationID: activity.OrganizationID,
			UpdatedAt:      now,
		},
	})
}

func validateTierShape(tier *models.PricingTier) error {
	if tier == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tier payload required")
	}
	if tier.ActivityID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "activity_id is required")
	}
	if tier.Label == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "label is required")
	}
	if !tier.TierType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown tier type")
	}
	if tier.UnitPrice < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if tier.Currency != "" && !tier.Currency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown currency")
	}
	if tier.MinAge != nil && tier.MaxAge != nil && *tier.MinAge > *tier.MaxAge {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_age exceeds max_age")
	}
	return nil
}
