package promos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
)

// Repository loads and mutates promo codes for one organization at a time.
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

// FindByCode resolves a promo code case-insensitively within the
// organization. Missing codes return (nil, nil).
func (r *Repository) FindByCode(ctx context.Context, orgID uuid.UUID, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND LOWER(code) = LOWER(?)", orgID, code).
		First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// FindByID loads a promo by primary key. Missing ids return (nil, nil).
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).First(&promo, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// ListByOrganization returns the organization's promo codes, newest first.
func (r *Repository) ListByOrganization(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]models.PromoCode, error) {
	query := r.db.WithContext(ctx).Where("organization_id = ?", orgID)
	if !includeArchived {
		query = query.Where("is_archived = ?", false)
	}
	var out []models.PromoCode
	if err := query.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a promo code.
func (r *Repository) Create(ctx context.Context, promo *models.PromoCode) (*models.PromoCode, error) {
	if err := r.db.WithContext(ctx).Create(promo).Error; err != nil {
		return nil, err
	}
	return promo, nil
}

// Update saves all mutable fields of the promo.
func (r *Repository) Update(ctx context.Context, promo *models.PromoCode) (*models.PromoCode, error) {
	if err := r.db.WithContext(ctx).Save(promo).Error; err != nil {
		return nil, err
	}
	return promo, nil
}

// Archive soft-deletes the promo so existing bookings keep their reference.
func (r *Repository) Archive(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_archived": true, "is_active": false}).Error
}

// IncrementUsage bumps uses_count if the cap has not been reached. Returns
// false when the guard fails, which means another booking took the last use.
func (r *Repository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("id = ? AND (max_uses IS NULL OR uses_count < max_uses)", id).
		UpdateColumn("uses_count", gorm.Expr("uses_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
