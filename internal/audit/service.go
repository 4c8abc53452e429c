package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salestrack-backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrAlreadyUndone = errors.New("this change was already undone")
	ErrNotUndoable   = errors.New("this change cannot be undone")
	ErrLogNotFound   = errors.New("audit log not found")
)

type LogOptions struct {
	UserID      string
	UserEmail   string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

type Filter struct {
	EntityType string
	EntityID   string
	UserID     string
	Limit      int
}

type Service struct {
	db *gorm.DB

	// OnProductRestored runs after an undo wrote a product back, so its
	// derived stock can be recomputed from the ledger.
	OnProductRestored func(ctx context.Context, productID string) error
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) WriteLog(ctx context.Context, opts LogOptions) error {
	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserEmail:   opts.UserEmail,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("could not write audit log: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var logs []models.AuditLog
	if err := q.Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("could not list audit logs: %w", err)
	}
	return logs, nil
}

// UndoLog reverts a product change. Sale entries are part of the append-only
// ledger and are never undone.
func (s *Service) UndoLog(ctx context.Context, logID uint, userID, userEmail string) error {
	var entry models.AuditLog
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", logID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLogNotFound
		}
		return fmt.Errorf("could not load audit log: %w", err)
	}
	if entry.IsUndone {
		return ErrAlreadyUndone
	}
	if entry.EntityType != models.EntityProduct {
		return ErrNotUndoable
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch entry.Action {
		case models.AuditActionCreate:
			if err := tx.Delete(&models.Product{}, "id = ?", entry.EntityID).Error; err != nil {
				return fmt.Errorf("could not delete product: %w", err)
			}
		case models.AuditActionUpdate, models.AuditActionDelete:
			var p models.Product
			if err := json.Unmarshal([]byte(entry.BeforeData), &p); err != nil {
				return fmt.Errorf("could not decode previous product state: %w", err)
			}
			if p.ID == "" {
				return ErrNotUndoable
			}
			// Save upserts, so a deleted product comes back with its old id.
			if err := tx.Save(&p).Error; err != nil {
				return fmt.Errorf("could not restore product: %w", err)
			}
		default:
			return ErrNotUndoable
		}

		now := time.Now()
		entry.IsUndone = true
		entry.UndoneBy = &userID
		entry.UndoneAt = &now
		if err := tx.Save(&entry).Error; err != nil {
			return fmt.Errorf("could not update audit log: %w", err)
		}

		undo := models.AuditLog{
			UserID:      userID,
			UserEmail:   userEmail,
			EntityType:  entry.EntityType,
			EntityID:    entry.EntityID,
			Action:      models.AuditActionUndo,
			Description: fmt.Sprintf("Undone: %s", entry.Description),
			BeforeData:  entry.AfterData,
			AfterData:   entry.BeforeData,
		}
		if err := tx.Create(&undo).Error; err != nil {
			return fmt.Errorf("could not write undo log: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if entry.Action != models.AuditActionCreate && s.OnProductRestored != nil {
		return s.OnProductRestored(ctx, entry.EntityID)
	}
	return nil
}

// toJSON encodes v, "null" when v is nil or not encodable.
func toJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
