package audit

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"salestrack-backend/internal/database"
	"salestrack-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func createProduct(t *testing.T, db *gorm.DB, name string) models.Product {
	t.Helper()
	p := models.Product{Name: name, Category: "Tools", Price: decimal.NewFromInt(5), InitialStock: 10}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestWriteLogAndList(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	require.NoError(t, svc.WriteLog(ctx, LogOptions{
		UserID: "u1", EntityType: models.EntityProduct, EntityID: "p1",
		Action: models.AuditActionCreate, Description: "created", After: map[string]int{"stock": 1},
	}))
	require.NoError(t, svc.WriteLog(ctx, LogOptions{
		UserID: "u2", EntityType: models.EntitySale, EntityID: "batch-1",
		Action: models.AuditActionImport, Description: "imported",
	}))

	all, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "imported", all[0].Description, "newest first")
	assert.Equal(t, "null", all[0].BeforeData)
	assert.JSONEq(t, `{"stock":1}`, all[1].AfterData)

	sales, err := svc.List(ctx, Filter{EntityType: models.EntitySale})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "u2", sales[0].UserID)

	byUser, err := svc.List(ctx, Filter{UserID: "u1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "p1", byUser[0].EntityID)
}

func TestUndoLog_Update(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)

	var restored []string
	svc.OnProductRestored = func(_ context.Context, id string) error {
		restored = append(restored, id)
		return nil
	}

	before := createProduct(t, db, "Widget")
	after := before
	after.Name = "Widget v2"
	after.InitialStock = 99
	require.NoError(t, db.Save(&after).Error)
	require.NoError(t, svc.WriteLog(ctx, LogOptions{
		UserID: "u1", EntityType: models.EntityProduct, EntityID: before.ID,
		Action: models.AuditActionUpdate, Description: "edit", Before: before, After: after,
	}))
	logs, err := svc.List(ctx, Filter{})
	require.NoError(t, err)

	require.NoError(t, svc.UndoLog(ctx, logs[0].ID, "admin", "admin@example.com"))

	var got models.Product
	require.NoError(t, db.First(&got, "id = ?", before.ID).Error)
	assert.Equal(t, "Widget", got.Name)
	assert.Equal(t, 10, got.InitialStock)
	assert.Equal(t, []string{before.ID}, restored)

	assert.ErrorIs(t, svc.UndoLog(ctx, logs[0].ID, "admin", ""), ErrAlreadyUndone)

	logs, err = svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionUndo, logs[0].Action)
	assert.Equal(t, "Undone: edit", logs[0].Description)
}

func TestUndoLog_DeleteRestoresSameID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)

	p := createProduct(t, db, "Bolt")
	require.NoError(t, db.Delete(&models.Product{}, "id = ?", p.ID).Error)
	require.NoError(t, svc.WriteLog(ctx, LogOptions{
		UserID: "u1", EntityType: models.EntityProduct, EntityID: p.ID,
		Action: models.AuditActionDelete, Before: p,
	}))
	logs, err := svc.List(ctx, Filter{})
	require.NoError(t, err)

	require.NoError(t, svc.UndoLog(ctx, logs[0].ID, "u1", ""))

	var got models.Product
	require.NoError(t, db.First(&got, "id = ?", p.ID).Error)
	assert.Equal(t, "Bolt", got.Name)
}

func TestUndoLog_CreateDeletesProduct(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)

	p := createProduct(t, db, "Gear")
	require.NoError(t, svc.WriteLog(ctx, LogOptions{
		UserID: "u1", EntityType: models.EntityProduct, EntityID: p.ID,
		Action: models.AuditActionCreate, After: p,
	}))
	logs, err := svc.List(ctx, Filter{})
	require.NoError(t, err)

	require.NoError(t, svc.UndoLog(ctx, logs[0].ID, "u1", ""))

	var count int64
	db.Model(&models.Product{}).Where("id = ?", p.ID).Count(&count)
	assert.Zero(t, count)
}

func TestUndoLog_SalesAreNotUndoable(t *testing.T) {
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	require.NoError(t, svc.WriteLog(ctx, LogOptions{
		UserID: "u1", EntityType: models.EntitySale, EntityID: "7", Action: models.AuditActionCreate,
	}))
	logs, err := svc.List(ctx, Filter{})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.UndoLog(ctx, logs[0].ID, "u1", ""), ErrNotUndoable)
	assert.ErrorIs(t, svc.UndoLog(ctx, 9999, "u1", ""), ErrLogNotFound)
}
