package repository

import (
	"context"

	"catalogdesk/internal/model"

	"gorm.io/gorm"
)

type RevisionRepository interface {
	Create(ctx context.Context, rev *model.ProductRevision) error
	ListByProduct(ctx context.Context, productID string, limit int) ([]model.ProductRevision, error)
}

type revisionRepo struct{ db *gorm.DB }

func NewRevisionRepository(db *gorm.DB) RevisionRepository { return &revisionRepo{db: db} }

func (r *revisionRepo) Create(ctx context.Context, rev *model.ProductRevision) error {
	return r.db.WithContext(ctx).Create(rev).Error
}

// ListByProduct returns the newest revisions first.
func (r *revisionRepo) ListByProduct(ctx context.Context, productID string, limit int) ([]model.ProductRevision, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var revs []model.ProductRevision
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(limit).
		Find(&revs).Error
	return revs, err
}
