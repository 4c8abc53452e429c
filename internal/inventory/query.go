package inventory

import (
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"salestrack-backend/internal/stock"
	"salestrack-backend/internal/utils"
)

const StatusAll = "all"

var sortKeys = map[string]func(a, b Row) int{
	"name": func(a, b Row) int {
		return strings.Compare(stock.Normalize(a.Product.Name), stock.Normalize(b.Product.Name))
	},
	"category": func(a, b Row) int {
		return strings.Compare(stock.Normalize(a.Product.Category), stock.Normalize(b.Product.Category))
	},
	"price":     func(a, b Row) int { return a.Product.Price.Cmp(b.Product.Price) },
	"stock":     func(a, b Row) int { return compareInt(a.Result.Stock, b.Result.Stock) },
	"sold":      func(a, b Row) int { return compareInt(a.Result.QuantitySold, b.Result.QuantitySold) },
	"revenue":   func(a, b Row) int { return a.Item().Revenue().Cmp(b.Item().Revenue()) },
	"min_stock": func(a, b Row) int { return compareInt(a.Product.MinStock, b.Product.MinStock) },
}

var stockStatuses = map[string]bool{
	StatusAll:              true,
	stock.StatusInStock:    true,
	stock.StatusLowStock:   true,
	stock.StatusOutOfStock: true,
}

// ListQuery is the product list view: filters, ordering, page and the
// optional historical day.
type ListQuery struct {
	Search      string
	Category    string
	StockStatus string
	Sort        string
	Order       string
	Page        int
	PageSize    int
	AsOf        *time.Time
}

// ParseListQuery reads and validates the list query string.
func ParseListQuery(c *fiber.Ctx, cal stock.Calendar) (ListQuery, error) {
	q := ListQuery{
		Search:      strings.TrimSpace(c.Query("search")),
		Category:    strings.TrimSpace(c.Query("category")),
		StockStatus: strings.ToLower(c.Query("stock_status", StatusAll)),
		Sort:        strings.ToLower(c.Query("sort", "name")),
		Order:       strings.ToLower(c.Query("order", "asc")),
	}
	q.Page, q.PageSize = utils.NormalizePage(c.QueryInt("page", 1), c.QueryInt("page_size", utils.DefaultPageSize))

	if !stockStatuses[q.StockStatus] {
		return q, fiber.NewError(fiber.StatusBadRequest, "stock_status must be one of all, in_stock, low_stock, out_of_stock")
	}
	if _, ok := sortKeys[q.Sort]; !ok {
		return q, fiber.NewError(fiber.StatusBadRequest, "sort must be one of name, category, price, stock, sold, revenue, min_stock")
	}
	if q.Order != "asc" && q.Order != "desc" {
		return q, fiber.NewError(fiber.StatusBadRequest, "order must be asc or desc")
	}

	asOf, err := parseAsOf(c, cal)
	if err != nil {
		return q, err
	}
	q.AsOf = asOf
	return q, nil
}

func parseAsOf(c *fiber.Ctx, cal stock.Calendar) (*time.Time, error) {
	asOf, err := cal.ParseOptionalDay(strings.TrimSpace(c.Query("as_of")))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "as_of must be a date in YYYY-MM-DD format")
	}
	return asOf, nil
}

// FilterRows keeps the rows matching search, category and stock status. The
// status is taken from the reconciled figures, so it follows as_of.
func (q ListQuery) FilterRows(rows []Row) []Row {
	search := strings.ToLower(q.Search)
	category := stock.Normalize(q.Category)

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Product.Name), search) &&
			!strings.Contains(strings.ToLower(r.Product.Description), search) {
			continue
		}
		if category != "" && stock.Normalize(r.Product.Category) != category {
			continue
		}
		if q.StockStatus != "" && q.StockStatus != StatusAll && r.Item().Status() != q.StockStatus {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortRows orders rows in place. Ties fall back to name, then id, so pages are
// stable between requests.
func (q ListQuery) SortRows(rows []Row) {
	cmp, ok := sortKeys[q.SortKey()]
	if !ok {
		cmp = sortKeys["name"]
	}
	desc := q.Order == "desc"

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := cmp(a, b); c != 0 {
			if desc {
				return c > 0
			}
			return c < 0
		}
		if c := sortKeys["name"](a, b); c != 0 {
			return c < 0
		}
		return a.Product.ID < b.Product.ID
	})
}

func (q ListQuery) SortKey() string {
	if q.Sort == "" {
		return "name"
	}
	return q.Sort
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
