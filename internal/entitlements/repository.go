package entitlements

import (
	"context"

	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists grants and their per-kind side effects.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertGrant(ctx context.Context, grant *models.EntitlementGrant) error
	GrantExists(ctx context.Context, orderID, productID uuid.UUID) (bool, error)
	ListGrantsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.EntitlementGrant, error)
	ListGrantsByUser(ctx context.Context, userID uuid.UUID) ([]models.EntitlementGrant, error)
	InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	EnrollmentExists(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	InsertLibraryAccess(ctx context.Context, access *models.LibraryAccess) error
	LibraryAccessExists(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	ClearEntitlementsPending(ctx context.Context, orderID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) InsertGrant(ctx context.Context, grant *models.EntitlementGrant) error {
	return r.db.WithContext(ctx).Create(grant).Error
}

func (r *repository) ListGrantsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.EntitlementGrant, error) {
	var grants []models.EntitlementGrant
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repository) ListGrantsByUser(ctx context.Context, userID uuid.UUID) ([]models.EntitlementGrant, error) {
	var grants []models.EntitlementGrant
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("granted_at DESC").
		Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repository) GrantExists(ctx context.Context, orderID, productID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.EntitlementGrant{}).
		Where("order_id = ? AND product_id = ?", orderID, productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *repository) EnrollmentExists(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) InsertLibraryAccess(ctx context.Context, access *models.LibraryAccess) error {
	return r.db.WithContext(ctx).Create(access).Error
}

func (r *repository) LibraryAccessExists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LibraryAccess{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ClearEntitlementsPending(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("entitlements_pending", false).Error
}
