package repository

import (
	"context"

	"catalogdesk/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SupplierRepository interface {
	// ReplaceAll upserts the feed's suppliers and deactivates the ones the
	// feed no longer lists.
	ReplaceAll(ctx context.Context, suppliers []model.Supplier) error
	FindByID(ctx context.Context, id string) (*model.Supplier, error)
	List(ctx context.Context) ([]model.Supplier, error)
}

type supplierRepo struct{ db *gorm.DB }

func NewSupplierRepository(db *gorm.DB) SupplierRepository { return &supplierRepo{db: db} }

func (r *supplierRepo) ReplaceAll(ctx context.Context, suppliers []model.Supplier) error {
	if len(suppliers) == 0 {
		return nil
	}
	ids := make([]string, 0, len(suppliers))
	for i := range suppliers {
		suppliers[i].Active = true
		ids = append(ids, suppliers[i].ID)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "active", "updated_at"}),
		}).CreateInBatches(suppliers, 500).Error
		if err != nil {
			return err
		}
		return tx.Model(&model.Supplier{}).
			Where("id NOT IN ? AND active = true", ids).
			Update("active", false).Error
	})
}

func (r *supplierRepo) FindByID(ctx context.Context, id string) (*model.Supplier, error) {
	var s model.Supplier
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *supplierRepo) List(ctx context.Context) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	err := r.db.WithContext(ctx).Where("active = true").Order("name").Find(&suppliers).Error
	return suppliers, err
}
