package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionImport AuditAction = "import"
	AuditActionUndo   AuditAction = "undo"
)

const (
	EntityProduct = "product"
	EntitySale    = "sale"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Subject and email come from the auth provider token.
	UserID    string `gorm:"size:128;index" json:"user_id"`
	UserEmail string `gorm:"size:255" json:"user_email"`

	// "product" or "sale"; for imports EntityID is the batch id.
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   string `gorm:"size:64;index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// Before/after state as JSON, "null" when absent.
	BeforeData string `gorm:"type:text" json:"before_data"`
	AfterData  string `gorm:"type:text" json:"after_data"`

	// Set on the log entry that was reverted.
	IsUndone bool       `gorm:"default:false" json:"is_undone"`
	UndoneBy *string    `gorm:"size:128" json:"undone_by"`
	UndoneAt *time.Time `json:"undone_at"`
}
