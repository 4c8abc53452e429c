package stock

import (
	"strings"

	"salestrack-backend/internal/models"
)

// Key is the normalized (name, category) pair that links sales to products.
type Key struct {
	Name     string
	Category string
}

// Normalize lower-cases and trims a matching field. No fuzzy matching is done:
// typos or inner whitespace differences still break the link.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ProductKey is the matching key of a product.
func ProductKey(p models.Product) Key {
	return Key{Name: Normalize(p.Name), Category: Normalize(p.Category)}
}

// SaleKey is the matching key of a sale.
func SaleKey(s models.Sale) Key {
	return Key{Name: Normalize(s.Product), Category: Normalize(s.Category)}
}

// Matches reports whether the sale belongs to the product.
func Matches(s models.Sale, p models.Product) bool {
	return SaleKey(s) == ProductKey(p)
}

// MatchedSales returns the sales of p in ledger order.
func MatchedSales(p models.Product, sales []models.Sale) []models.Sale {
	key := ProductKey(p)
	var out []models.Sale
	for _, s := range sales {
		if SaleKey(s) == key {
			out = append(out, s)
		}
	}
	return out
}

// Index groups a ledger snapshot by Key. It lives for a single request and is
// never shared between calls.
type Index map[Key][]models.Sale

// NewIndex groups sales by SaleKey, keeping ledger order within each key.
func NewIndex(sales []models.Sale) Index {
	idx := make(Index)
	for _, s := range sales {
		k := SaleKey(s)
		idx[k] = append(idx[k], s)
	}
	return idx
}

// For returns the sales matched to p, nil when there are none.
func (idx Index) For(p models.Product) []models.Sale {
	return idx[ProductKey(p)]
}
