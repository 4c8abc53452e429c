package store

import (
	"context"
	"fmt"
	"time"

	"salestrack-backend/internal/models"

	"gorm.io/gorm"
)

// importChunk bounds the rows per INSERT statement of a batch.
const importChunk = 200

type SaleStore struct {
	db *gorm.DB
}

func NewSaleStore(db *gorm.DB) *SaleStore {
	return &SaleStore{db: db}
}

// List returns the whole ledger, oldest first.
func (r *SaleStore) List(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	if err := r.db.WithContext(ctx).Order("date asc, id asc").Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}

// ListRange returns sales with from <= date <= to, oldest first.
func (r *SaleStore) ListRange(ctx context.Context, from, to time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date asc, id asc").
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}

func (r *SaleStore) Create(ctx context.Context, s *models.Sale) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}
	return nil
}

// CreateBatch inserts all sales or none.
func (r *SaleStore) CreateBatch(ctx context.Context, sales []models.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&sales, importChunk).Error
	})
	if err != nil {
		return fmt.Errorf("failed to import sales: %w", err)
	}
	return nil
}
