package stock

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"salestrack-backend/internal/models"
)

// Item is the effective per-product figure set for the active view. Stock and
// QuantitySold may be current or historical; the aggregation does not care.
type Item struct {
	Category     string
	Price        decimal.Decimal
	Stock        int
	MinStock     int
	QuantitySold int
}

func ItemOf(p models.Product, r Result) Item {
	return Item{
		Category:     p.Category,
		Price:        p.Price,
		Stock:        r.Stock,
		MinStock:     p.MinStock,
		QuantitySold: r.QuantitySold,
	}
}

// Revenue is quantity sold times unit price.
func (it Item) Revenue() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.QuantitySold)))
}

type CategoryStats struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Stock    int             `json:"stock"`
	Sold     int             `json:"sold"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type Statistics struct {
	TotalProducts     int             `json:"total_products"`
	TotalStock        int             `json:"total_stock"`
	TotalSold         int             `json:"total_sold"`
	OutOfStock        int             `json:"out_of_stock"`
	LowStock          int             `json:"low_stock"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	CategoryBreakdown []CategoryStats `json:"category_breakdown"`
}

// Stock status buckets used by Aggregate and by list filters.
const (
	StatusInStock    = "in_stock"
	StatusLowStock   = "low_stock"
	StatusOutOfStock = "out_of_stock"
)

// Status classifies an item; low stock is 0 < stock <= min stock.
func (it Item) Status() string {
	switch {
	case it.Stock == 0:
		return StatusOutOfStock
	case it.Stock <= it.MinStock:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Aggregate reduces the items of the current view to list statistics.
func Aggregate(items []Item) Statistics {
	stats := Statistics{
		TotalRevenue:      decimal.Zero,
		CategoryBreakdown: []CategoryStats{},
	}
	groups := make(map[string]*CategoryStats)

	for _, it := range items {
		revenue := it.Revenue()

		stats.TotalProducts++
		stats.TotalStock += it.Stock
		stats.TotalSold += it.QuantitySold
		stats.TotalRevenue = stats.TotalRevenue.Add(revenue)
		switch it.Status() {
		case StatusOutOfStock:
			stats.OutOfStock++
		case StatusLowStock:
			stats.LowStock++
		}

		name := strings.TrimSpace(it.Category)
		g, ok := groups[name]
		if !ok {
			g = &CategoryStats{Category: name, Revenue: decimal.Zero}
			groups[name] = g
		}
		g.Count++
		g.Stock += it.Stock
		g.Sold += it.QuantitySold
		g.Revenue = g.Revenue.Add(revenue)
	}

	for _, g := range groups {
		stats.CategoryBreakdown = append(stats.CategoryBreakdown, *g)
	}
	sort.Slice(stats.CategoryBreakdown, func(i, j int) bool {
		a, b := stats.CategoryBreakdown[i], stats.CategoryBreakdown[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})
	return stats
}

// SalesSummary totals a slice of the ledger.
type SalesSummary struct {
	Count    int             `json:"count"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

func SummarizeSales(sales []models.Sale) SalesSummary {
	sum := SalesSummary{Revenue: decimal.Zero}
	for _, s := range sales {
		sum.Count++
		sum.Quantity += quantity(s)
		sum.Revenue = sum.Revenue.Add(s.Total)
	}
	return sum
}
