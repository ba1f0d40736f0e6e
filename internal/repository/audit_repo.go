package repository

import (
	"context"

	"github.com/timmy/prodcat/internal/domain"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// ImageAssignmentRepository stores the images saved to catalog products.
type ImageAssignmentRepository struct {
	db *gorm.DB
}

// NewImageAssignmentRepository creates a new ImageAssignmentRepository.
func NewImageAssignmentRepository(db *gorm.DB) *ImageAssignmentRepository {
	return &ImageAssignmentRepository{db: db}
}

// Create inserts an assignment record.
func (r *ImageAssignmentRepository) Create(ctx context.Context, a *domain.ImageAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// ListByProduct returns the assignments of a product, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - productID: catalog product id.
//   - limit: maximum rows; non-positive uses the default.
//
// Returns:
//   - []domain.ImageAssignment: matching records, never nil.
//   - error: non-nil if the query fails.
func (r *ImageAssignmentRepository) ListByProduct(ctx context.Context, productID int64, limit int) ([]domain.ImageAssignment, error) {
	out := []domain.ImageAssignment{}
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(historyLimit(limit)).
		Find(&out).Error
	return out, err
}

// FindByMD5 returns the most recent assignment of identical image bytes, or
// gorm.ErrRecordNotFound.
func (r *ImageAssignmentRepository) FindByMD5(ctx context.Context, md5Hash string) (*domain.ImageAssignment, error) {
	var a domain.ImageAssignment
	if err := r.db.WithContext(ctx).
		Where("md5_hash = ?", md5Hash).
		Order("created_at DESC").
		First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ObservationRevisionRepository stores the observations saved to catalog products.
type ObservationRevisionRepository struct {
	db *gorm.DB
}

// NewObservationRevisionRepository creates a new ObservationRevisionRepository.
func NewObservationRevisionRepository(db *gorm.DB) *ObservationRevisionRepository {
	return &ObservationRevisionRepository{db: db}
}

// Create inserts a revision record.
func (r *ObservationRevisionRepository) Create(ctx context.Context, rev *domain.ObservationRevision) error {
	return r.db.WithContext(ctx).Create(rev).Error
}

// ListByProduct returns the revisions of a product, newest first.
func (r *ObservationRevisionRepository) ListByProduct(ctx context.Context, productID int64, limit int) ([]domain.ObservationRevision, error) {
	out := []domain.ObservationRevision{}
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(historyLimit(limit)).
		Find(&out).Error
	return out, err
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	return min(limit, maxHistoryLimit)
}
