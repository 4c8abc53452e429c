package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is an inventory item. Stock and QuantitySold are denormalized values
// that are always re-derivable from InitialStock, InitialStockDate and the sale
// ledger; only the reconciliation path writes them.
type Product struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	Name             string          `gorm:"size:150;not null;index" json:"name"`
	Category         string          `gorm:"size:100;not null;index" json:"category"`
	Price            decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price"`
	InitialStock     int             `gorm:"not null;default:0" json:"initial_stock"`
	InitialStockDate *time.Time      `json:"initial_stock_date"` // nil: no time boundary
	Stock            int             `gorm:"not null;default:0" json:"stock"`
	MinStock         int             `gorm:"not null;default:0" json:"min_stock"`
	QuantitySold     int             `gorm:"not null;default:0" json:"quantity_sold"`
	Description      string          `gorm:"size:1000" json:"description"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
