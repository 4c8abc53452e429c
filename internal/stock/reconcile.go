package stock

import (
	"time"

	"salestrack-backend/internal/models"
)

// Result is the reconciled view of one product.
type Result struct {
	Stock         int  `json:"stock"`
	QuantitySold  int  `json:"quantity_sold"`
	IsHistorical  bool `json:"is_historical"`
	HasEarlySales bool `json:"has_early_sales"`
	EarlySold     int  `json:"early_sold"`
	MatchedCount  int  `json:"matched_count"`
}

// Reconciler computes current or point-in-time stock from a product baseline
// and the sale ledger. It holds no state besides the calendar and never fails:
// inconsistent data shows up as clamped stock or the early-sales flag.
type Reconciler struct {
	Calendar Calendar
}

func NewReconciler(cal Calendar) Reconciler {
	return Reconciler{Calendar: cal}
}

// Reconcile matches p against the whole ledger, then reconciles. asOf selects
// a calendar day for the historical view; nil means "now".
func (r Reconciler) Reconcile(p models.Product, allSales []models.Sale, asOf *time.Time) Result {
	return r.ReconcileMatched(p, MatchedSales(p, allSales), asOf)
}

// ReconcileMatched is Reconcile for callers that already hold the matched
// sales of p, typically from an Index.
func (r Reconciler) ReconcileMatched(p models.Product, matched []models.Sale, asOf *time.Time) Result {
	res := Result{MatchedCount: len(matched)}

	hasBaseline := p.InitialStockDate != nil
	for _, s := range EarlySales(r.Calendar, p, matched) {
		res.HasEarlySales = true
		res.EarlySold += quantity(s)
	}

	if asOf != nil {
		cutoff := r.Calendar.EndOfDay(*asOf)
		for _, s := range matched {
			if !s.Date.After(cutoff) {
				res.QuantitySold += quantity(s)
			}
		}
		base := p.InitialStock
		if !hasBaseline {
			base = ImpliedBaseline(p)
		}
		res.Stock = clamp(base - res.QuantitySold)
		res.IsHistorical = true
		return res
	}

	for _, s := range matched {
		if hasBaseline && isEarly(r.Calendar, p, s) {
			continue
		}
		res.QuantitySold += quantity(s)
	}
	res.Stock = clamp(p.InitialStock - res.QuantitySold)
	return res
}

// EarlySales returns the matched sales dated before the start of the
// product's baseline day, in ledger order. A sale on the baseline day itself
// is not early. Products without a baseline date have none.
func EarlySales(cal Calendar, p models.Product, matched []models.Sale) []models.Sale {
	if p.InitialStockDate == nil {
		return nil
	}
	var early []models.Sale
	for _, s := range matched {
		if isEarly(cal, p, s) {
			early = append(early, s)
		}
	}
	return early
}

func isEarly(cal Calendar, p models.Product, s models.Sale) bool {
	return s.Date.Before(cal.StartOfDay(*p.InitialStockDate))
}

// ImpliedBaseline reconstructs a starting stock for products without an
// initial stock date from their denormalized fields. It only agrees with
// InitialStock while Stock and QuantitySold were last written by Derived and
// the stock was not clamped.
func ImpliedBaseline(p models.Product) int {
	return p.Stock + p.QuantitySold
}

// Derived returns p with Stock and QuantitySold refreshed from the current
// reconciliation. Persisting the result is up to the caller.
func (r Reconciler) Derived(p models.Product, matched []models.Sale) models.Product {
	res := r.ReconcileMatched(p, matched, nil)
	p.Stock = res.Stock
	p.QuantitySold = res.QuantitySold
	return p
}

func quantity(s models.Sale) int {
	if s.Quantity < 0 {
		return 0
	}
	return s.Quantity
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
