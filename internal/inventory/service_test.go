package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"salestrack-backend/internal/audit"
	"salestrack-backend/internal/auth"
	"salestrack-backend/internal/database"
	"salestrack-backend/internal/models"
	"salestrack-backend/internal/stock"
	"salestrack-backend/internal/store"
)

var (
	cal   = stock.NewCalendar(time.UTC)
	staff = auth.User{ID: "user-1", Email: "staff@example.com", Role: models.RoleStaff}
)

type fixture struct {
	db    *gorm.DB
	sales *store.SaleStore
	audit *audit.Service
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	auditSvc := audit.NewService(db)
	sales := store.NewSaleStore(db)
	svc := NewService(store.NewProductStore(db), sales, auditSvc, cal)
	auditSvc.OnProductRestored = svc.RefreshProduct
	return &fixture{db: db, sales: sales, audit: auditSvc, svc: svc}
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := cal.ParseDay(s)
	require.NoError(t, err)
	return d
}

func (f *fixture) addSale(t *testing.T, product, category, date string, qty int) {
	t.Helper()
	price := decimal.NewFromInt(2)
	require.NoError(t, f.sales.Create(context.Background(), &models.Sale{
		Product:  product,
		Category: category,
		Date:     day(t, date),
		Quantity: qty,
		Price:    price,
		Total:    price.Mul(decimal.NewFromInt(int64(qty))),
	}))
}

func widgetInput(t *testing.T) ProductInput {
	baseline := day(t, "2024-01-10")
	return ProductInput{
		Name:             "Widget",
		Category:         "Tools",
		Price:            decimal.NewFromInt(2),
		InitialStock:     100,
		InitialStockDate: &baseline,
		MinStock:         10,
	}
}

func TestService_CreateDerivesFromLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addSale(t, "widget ", "TOOLS", "2024-01-05", 5) // before the baseline
	f.addSale(t, "Widget", "Tools", "2024-01-12", 10)
	f.addSale(t, "Widget", "Tools", "2024-01-20", 20)
	f.addSale(t, "Widget", "Toys", "2024-01-20", 99)

	row, err := f.svc.Create(ctx, staff, widgetInput(t))
	require.NoError(t, err)
	assert.NotEmpty(t, row.Product.ID)
	assert.Equal(t, 70, row.Product.Stock)
	assert.Equal(t, 30, row.Product.QuantitySold)
	assert.True(t, row.Result.HasEarlySales)
	assert.Equal(t, 5, row.Result.EarlySold)
	assert.Equal(t, 3, row.Result.MatchedCount)

	var stored models.Product
	require.NoError(t, f.db.First(&stored, "id = ?", row.Product.ID).Error)
	assert.Equal(t, 70, stored.Stock)

	logs, err := f.audit.List(ctx, audit.Filter{EntityID: row.Product.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionCreate, logs[0].Action)
	assert.Equal(t, "staff@example.com", logs[0].UserEmail)
}

func TestService_RowsHistorical(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addSale(t, "Widget", "Tools", "2024-01-05", 5)
	f.addSale(t, "Widget", "Tools", "2024-01-12", 10)
	f.addSale(t, "Widget", "Tools", "2024-01-20", 20)
	_, err := f.svc.Create(ctx, staff, widgetInput(t))
	require.NoError(t, err)

	asOf := day(t, "2024-01-15")
	rows, err := f.svc.Rows(ctx, &asOf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Result.IsHistorical)
	assert.Equal(t, 15, rows[0].Result.QuantitySold, "historical view has no floor at the baseline")
	assert.Equal(t, 85, rows[0].Result.Stock)

	stats, err := f.svc.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, 70, stats.TotalStock)
	assert.True(t, decimal.NewFromInt(60).Equal(stats.TotalRevenue))
}

func TestService_UpdateRematchesSales(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addSale(t, "Widget", "Tools", "2024-01-12", 10)
	f.addSale(t, "Gizmo", "Tools", "2024-01-12", 3)
	row, err := f.svc.Create(ctx, staff, widgetInput(t))
	require.NoError(t, err)

	in := widgetInput(t)
	in.Name = "Gizmo"
	in.InitialStockDate = nil
	in.InitialStock = 50
	updated, err := f.svc.Update(ctx, staff, row.Product.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Product.QuantitySold)
	assert.Equal(t, 47, updated.Product.Stock)
	assert.Nil(t, updated.Product.InitialStockDate)

	_, err = f.svc.Update(ctx, staff, "missing", in)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_DeleteAndUndo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	row, err := f.svc.Create(ctx, staff, widgetInput(t))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, staff, row.Product.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, staff, row.Product.ID), store.ErrNotFound)

	// A sale recorded while the product was gone must count after the undo.
	f.addSale(t, "Widget", "Tools", "2024-02-01", 4)

	logs, err := f.audit.List(ctx, audit.Filter{EntityID: row.Product.ID})
	require.NoError(t, err)
	require.Equal(t, models.AuditActionDelete, logs[0].Action)
	require.NoError(t, f.audit.UndoLog(ctx, logs[0].ID, "admin-1", "admin@example.com"))

	restored, err := f.svc.Get(ctx, row.Product.ID)
	require.NoError(t, err)
	assert.Equal(t, 96, restored.Product.Stock)
	assert.Equal(t, 4, restored.Product.QuantitySold)
}

func TestService_DeleteMany(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, err := f.svc.Create(ctx, staff, widgetInput(t))
	require.NoError(t, err)
	in := widgetInput(t)
	in.Name = "Gizmo"
	b, err := f.svc.Create(ctx, staff, in)
	require.NoError(t, err)
	in.Name = "Bolt"
	c, err := f.svc.Create(ctx, staff, in)
	require.NoError(t, err)

	n, err := f.svc.DeleteMany(ctx, staff, []string{a.Product.ID, b.Product.ID, a.Product.ID, "unknown", " "})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	rows, err := f.svc.Rows(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, c.Product.ID, rows[0].Product.ID)

	deletes, err := f.audit.List(ctx, audit.Filter{EntityType: models.EntityProduct})
	require.NoError(t, err)
	count := 0
	for _, l := range deletes {
		if l.Action == models.AuditActionDelete {
			count++
		}
	}
	assert.Equal(t, 2, count)

	n, err = f.svc.DeleteMany(ctx, staff, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	row, err := f.svc.Create(ctx, staff, widgetInput(t))
	require.NoError(t, err)
	in := widgetInput(t)
	in.Name = "Gizmo"
	_, err = f.svc.Create(ctx, staff, in)
	require.NoError(t, err)

	// New sales leave the stored figures stale until a refresh.
	f.addSale(t, "Widget", "Tools", "2024-01-11", 7)

	n, err := f.svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var stored models.Product
	require.NoError(t, f.db.First(&stored, "id = ?", row.Product.ID).Error)
	assert.Equal(t, 93, stored.Stock)
	assert.Equal(t, 7, stored.QuantitySold)

	n, err = f.svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "refresh is idempotent")
}

func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addSale(t, "Widget", "Tools", "2024-01-05", 5)
	f.addSale(t, "Widget", "Tools", "2024-01-10", 1)
	f.addSale(t, "Widget", "Tools", "2024-01-12", 10)
	row, err := f.svc.Create(ctx, staff, widgetInput(t))
	require.NoError(t, err)

	rec, err := f.svc.Reconcile(ctx, row.Product.ID, nil)
	require.NoError(t, err)
	assert.Len(t, rec.Matched, 3)
	require.Len(t, rec.Early, 1)
	assert.Equal(t, 5, rec.Early[0].Quantity)
	assert.Equal(t, 11, rec.Result.QuantitySold)

	_, err = f.svc.Reconcile(ctx, "missing", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_Categories(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Create(ctx, staff, widgetInput(t))
	require.NoError(t, err)
	f.addSale(t, "Ball", "toys", "2024-01-05", 1)
	f.addSale(t, "Hammer", " tools ", "2024-01-05", 1)
	f.addSale(t, "Apple", "Food", "2024-01-05", 1)

	cats, err := f.svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food", "Tools", "toys"}, cats)
}
