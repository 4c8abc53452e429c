package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"salestrack-backend/internal/audit"
	"salestrack-backend/internal/auth"
	"salestrack-backend/internal/config"
	"salestrack-backend/internal/models"
	"salestrack-backend/internal/stock"
	"salestrack-backend/internal/store"
)

// Row is a product together with its reconciliation for the requested view.
type Row struct {
	Product models.Product
	Result  stock.Result
}

func (r Row) Item() stock.Item {
	return stock.ItemOf(r.Product, r.Result)
}

// ProductInput holds the user-editable fields of a product. Stock and
// QuantitySold are never taken from input.
type ProductInput struct {
	Name             string
	Category         string
	Price            decimal.Decimal
	InitialStock     int
	InitialStockDate *time.Time
	MinStock         int
	Description      string
}

// Reconciliation explains the figures of one product.
type Reconciliation struct {
	Product models.Product
	Result  stock.Result
	Matched []models.Sale
	Early   []models.Sale
}

type Service struct {
	products store.ProductRepository
	sales    store.SaleRepository
	audit    *audit.Service
	rec      stock.Reconciler
	logger   *logrus.Logger
}

// NewService wires the inventory use cases. auditSvc may be nil.
func NewService(products store.ProductRepository, sales store.SaleRepository, auditSvc *audit.Service, cal stock.Calendar) *Service {
	return &Service{
		products: products,
		sales:    sales,
		audit:    auditSvc,
		rec:      stock.NewReconciler(cal),
		logger:   config.GetLogger(),
	}
}

func (s *Service) Calendar() stock.Calendar {
	return s.rec.Calendar
}

// Rows reconciles every product against one snapshot of the ledger. asOf nil
// is the current view.
func (s *Service) Rows(ctx context.Context, asOf *time.Time) ([]Row, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := s.sales.List(ctx)
	if err != nil {
		return nil, err
	}

	idx := stock.NewIndex(ledger)
	rows := make([]Row, len(products))
	for i, p := range products {
		rows[i] = Row{Product: p, Result: s.rec.ReconcileMatched(p, idx.For(p), asOf)}
	}
	return rows, nil
}

func (s *Service) Stats(ctx context.Context, asOf *time.Time) (stock.Statistics, error) {
	rows, err := s.Rows(ctx, asOf)
	if err != nil {
		return stock.Statistics{}, err
	}
	return stock.Aggregate(items(rows)), nil
}

func (s *Service) Get(ctx context.Context, id string) (Row, error) {
	rec, err := s.Reconcile(ctx, id, nil)
	if err != nil {
		return Row{}, err
	}
	return Row{Product: rec.Product, Result: rec.Result}, nil
}

// Reconcile returns the matched and early sales of a product next to its
// figures.
func (s *Service) Reconcile(ctx context.Context, id string, asOf *time.Time) (*Reconciliation, error) {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ledger, err := s.sales.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := stock.MatchedSales(*p, ledger)
	out := &Reconciliation{
		Product: *p,
		Result:  s.rec.ReconcileMatched(*p, matched, asOf),
		Matched: nonNil(matched),
		Early:   nonNil(stock.EarlySales(s.rec.Calendar, *p, matched)),
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, actor auth.User, in ProductInput) (Row, error) {
	p := models.Product{}
	in.applyTo(&p)

	matched, err := s.matched(ctx, p)
	if err != nil {
		return Row{}, err
	}
	p = s.rec.Derived(p, matched)
	if err := s.products.Create(ctx, &p); err != nil {
		return Row{}, err
	}

	s.writeAudit(ctx, actor, p.ID, models.AuditActionCreate, fmt.Sprintf("Product %s created", p.Name), nil, p)
	return Row{Product: p, Result: s.rec.ReconcileMatched(p, matched, nil)}, nil
}

// Update replaces the editable fields and re-derives the stock figures,
// since a new name, category or baseline changes which sales count.
func (s *Service) Update(ctx context.Context, actor auth.User, id string, in ProductInput) (Row, error) {
	before, err := s.products.Get(ctx, id)
	if err != nil {
		return Row{}, err
	}
	p := *before
	in.applyTo(&p)

	matched, err := s.matched(ctx, p)
	if err != nil {
		return Row{}, err
	}
	p = s.rec.Derived(p, matched)
	if err := s.products.Update(ctx, &p); err != nil {
		return Row{}, err
	}

	s.writeAudit(ctx, actor, p.ID, models.AuditActionUpdate, fmt.Sprintf("Product %s updated", p.Name), before, p)
	return Row{Product: p, Result: s.rec.ReconcileMatched(p, matched, nil)}, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.User, id string) error {
	before, err := s.products.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.writeAudit(ctx, actor, id, models.AuditActionDelete, fmt.Sprintf("Product %s deleted", before.Name), before, nil)
	return nil
}

// DeleteMany removes the listed products; unknown ids are ignored. Each
// deletion gets its own audit entry so it can be undone on its own.
func (s *Service) DeleteMany(ctx context.Context, actor auth.User, ids []string) (int64, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			wanted[id] = true
		}
	}
	if len(wanted) == 0 {
		return 0, nil
	}

	products, err := s.products.List(ctx)
	if err != nil {
		return 0, err
	}
	var doomed []models.Product
	var doomedIDs []string
	for _, p := range products {
		if wanted[p.ID] {
			doomed = append(doomed, p)
			doomedIDs = append(doomedIDs, p.ID)
		}
	}

	n, err := s.products.DeleteMany(ctx, doomedIDs)
	if err != nil {
		return 0, err
	}
	for _, p := range doomed {
		s.writeAudit(ctx, actor, p.ID, models.AuditActionDelete, fmt.Sprintf("Product %s deleted (bulk)", p.Name), p, nil)
	}
	return n, nil
}

// Refresh rewrites the persisted stock figures of every product whose
// stored values drifted from the ledger. It returns how many were written.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	rows, err := s.Rows(ctx, nil)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, r := range rows {
		if r.Product.Stock == r.Result.Stock && r.Product.QuantitySold == r.Result.QuantitySold {
			continue
		}
		if err := s.products.SaveDerived(ctx, r.Product.ID, r.Result.Stock, r.Result.QuantitySold); err != nil {
			return updated, err
		}
		updated++
	}

	s.logger.WithFields(logrus.Fields{
		"products": len(rows),
		"updated":  updated,
	}).Info("stock figures refreshed")
	return updated, nil
}

// RefreshProduct re-derives the stock figures of one product.
func (s *Service) RefreshProduct(ctx context.Context, id string) error {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return err
	}
	matched, err := s.matched(ctx, *p)
	if err != nil {
		return err
	}
	d := s.rec.Derived(*p, matched)
	return s.products.SaveDerived(ctx, d.ID, d.Stock, d.QuantitySold)
}

// Categories lists the distinct category labels of products and sales,
// compared case-insensitively. The first spelling seen wins, products first.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := s.sales.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	out := []string{}
	add := func(label string) {
		label = strings.TrimSpace(label)
		key := stock.Normalize(label)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, label)
	}
	for _, p := range products {
		add(p.Category)
	}
	for _, sale := range ledger {
		add(sale.Category)
	}

	sort.Slice(out, func(i, j int) bool {
		return stock.Normalize(out[i]) < stock.Normalize(out[j])
	})
	return out, nil
}

func (s *Service) matched(ctx context.Context, p models.Product) ([]models.Sale, error) {
	ledger, err := s.sales.List(ctx)
	if err != nil {
		return nil, err
	}
	return stock.MatchedSales(p, ledger), nil
}

// writeAudit never fails the request; the change itself is already stored.
func (s *Service) writeAudit(ctx context.Context, actor auth.User, id string, action models.AuditAction, desc string, before, after any) {
	if s.audit == nil {
		return
	}
	err := s.audit.WriteLog(ctx, audit.LogOptions{
		UserID:      actor.ID,
		UserEmail:   actor.Email,
		EntityType:  models.EntityProduct,
		EntityID:    id,
		Action:      action,
		Description: desc,
		Before:      before,
		After:       after,
	})
	if err != nil {
		config.LogError(s.logger, "inventory", "writeAudit", "audit", id, err)
	}
}

func (in ProductInput) applyTo(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Category = strings.TrimSpace(in.Category)
	p.Price = in.Price
	p.InitialStock = in.InitialStock
	p.InitialStockDate = in.InitialStockDate
	p.MinStock = in.MinStock
	p.Description = strings.TrimSpace(in.Description)
}

func items(rows []Row) []stock.Item {
	out := make([]stock.Item, len(rows))
	for i, r := range rows {
		out[i] = r.Item()
	}
	return out
}

func nonNil(sales []models.Sale) []models.Sale {
	if sales == nil {
		return []models.Sale{}
	}
	return sales
}
