package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is one line of the sale ledger. Rows are append-only; the link to a
// Product is resolved at query time by normalized (name, category).
type Sale struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Product     string          `gorm:"size:150;not null;index" json:"product"`
	Category    string          `gorm:"size:100;not null;index" json:"category"`
	Date        time.Time       `gorm:"index;not null" json:"date"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price"`
	Total       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	ImportBatch string          `gorm:"size:36;index" json:"import_batch,omitempty"` // empty for manually entered sales
	CreatedAt   time.Time       `json:"created_at"`
}
