package activities

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/pagination"
)

// Repository loads activities and their pricing tiers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads an activity. Missing ids return (nil, nil).
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	var activity models.Activity
	err := r.db.WithContext(ctx).First(&activity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListByOrganization returns a page of the organization's activities,
// newest first. The cursor is exclusive.
func (r *Repository) ListByOrganization(ctx context.Context, orgID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Activity, error) {
	q := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC, id DESC")
	if cursor != nil {
		q = q.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []models.Activity
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveTiers returns the activity's active tiers in display order.
func (r *Repository) ListActiveTiers(ctx context.Context, activityID uuid.UUID) ([]models.PricingTier, error) {
	var tiers []models.PricingTier
	if err := r.db.WithContext(ctx).
		Where("activity_id = ? AND is_active = ?", activityID, true).
		Order("display_order ASC, created_at ASC").
		Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

// ListAllTiers returns every tier of the activity, inactive ones included.
func (r *Repository) ListAllTiers(ctx context.Context, activityID uuid.UUID) ([]models.PricingTier, error) {
	var tiers []models.PricingTier
	if err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("display_order ASC, created_at ASC").
		Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

// FindTierByID loads a single tier. Missing ids return (nil, nil).
func (r *Repository) FindTierByID(ctx context.Context, id uuid.UUID) (*models.PricingTier, error) {
	var tier models.PricingTier
	err := r.db.WithContext(ctx).First(&tier, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

// CreateTier inserts a pricing tier.
func (r *Repository) CreateTier(ctx context.Context, tier *models.PricingTier) (*models.PricingTier, error) {
	if err := r.db.WithContext(ctx).Create(tier).Error; err != nil {
		return nil, err
	}
	return tier, nil
}

// UpdateTier saves all mutable fields of the tier.
func (r *Repository) UpdateTier(ctx context.Context, tier *models.PricingTier) (*models.PricingTier, error) {
	if err := r.db.WithContext(ctx).Save(tier).Error; err != nil {
		return nil, err
	}
	return tier, nil
}

// DeactivateTier flips the tier inactive. Tiers referenced by bookings are
// never deleted.
func (r *Repository) DeactivateTier(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PricingTier{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

// ClearDefaultTier drops the default flag from every tier of the activity
// sharing the tier type, used before promoting a new default.
func (r *Repository) ClearDefaultTier(ctx context.Context, activityID uuid.UUID, tierType string) error {
	return r.db.WithContext(ctx).
		Model(&models.PricingTier{}).
		Where("activity_id = ? AND tier_type = ?", activityID, tierType).
		Update("is_default", false).Error
}
