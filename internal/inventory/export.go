package inventory

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"salestrack-backend/internal/spreadsheet"
	"salestrack-backend/internal/stock"
)

var exportHeaders = []string{
	"Name", "Category", "Price", "Initial Stock", "Initial Stock Date",
	"Stock", "Min Stock", "Sold", "Revenue", "Status", "Early Sales",
}

// GET /api/products/export?as_of=
// Same filters as the list, without pagination.
func ExportProductsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cal := svc.Calendar()
		q, err := ParseListQuery(c, cal)
		if err != nil {
			return err
		}
		rows, err := svc.Rows(c.UserContext(), q.AsOf)
		if err != nil {
			return err
		}
		rows = q.FilterRows(rows)
		q.SortRows(rows)

		var buf bytes.Buffer
		if err := spreadsheet.Write(&buf, productSheets(cal, rows)...); err != nil {
			return err
		}

		label := "current"
		if q.AsOf != nil {
			label = cal.Format(*q.AsOf)
		}
		c.Set(fiber.HeaderContentType, spreadsheet.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="products-%s.xlsx"`, label))
		return c.Send(buf.Bytes())
	}
}

func productSheets(cal stock.Calendar, rows []Row) []spreadsheet.Sheet {
	products := spreadsheet.Sheet{Name: "Products", Headers: exportHeaders}
	for _, r := range rows {
		it := r.Item()
		baseline := ""
		if d := r.Product.InitialStockDate; d != nil {
			baseline = cal.Format(*d)
		}
		products.Rows = append(products.Rows, []any{
			r.Product.Name,
			r.Product.Category,
			r.Product.Price,
			r.Product.InitialStock,
			baseline,
			r.Result.Stock,
			r.Product.MinStock,
			r.Result.QuantitySold,
			it.Revenue(),
			it.Status(),
			r.Result.EarlySold,
		})
	}

	stats := stock.Aggregate(items(rows))
	summary := spreadsheet.Sheet{
		Name:    "Categories",
		Headers: []string{"Category", "Products", "Stock", "Sold", "Revenue"},
	}
	for _, g := range stats.CategoryBreakdown {
		summary.Rows = append(summary.Rows, []any{g.Category, g.Count, g.Stock, g.Sold, g.Revenue})
	}
	summary.Rows = append(summary.Rows, []any{"Total", stats.TotalProducts, stats.TotalStock, stats.TotalSold, stats.TotalRevenue})

	return []spreadsheet.Sheet{products, summary}
}
