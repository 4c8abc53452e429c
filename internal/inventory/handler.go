package inventory

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"salestrack-backend/internal/auth"
	"salestrack-backend/internal/models"
	"salestrack-backend/internal/stock"
	"salestrack-backend/internal/store"
	"salestrack-backend/internal/utils"
)

type ProductResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	Price            decimal.Decimal `json:"price"`
	InitialStock     int             `json:"initial_stock"`
	InitialStockDate *string         `json:"initial_stock_date"`
	MinStock         int             `json:"min_stock"`
	Description      string          `json:"description"`
	Stock            int             `json:"stock"`
	QuantitySold     int             `json:"quantity_sold"`
	Revenue          decimal.Decimal `json:"revenue"`
	Status           string          `json:"status"`
	IsHistorical     bool            `json:"is_historical"`
	HasEarlySales    bool            `json:"has_early_sales"`
	EarlySold        int             `json:"early_sold"`
	MatchedSales     int             `json:"matched_sales"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type ListProductsResponse struct {
	Items      []ProductResponse `json:"items"`
	Pagination utils.PageInfo    `json:"pagination"`
	Stats      stock.Statistics  `json:"stats"`
	AsOf       *string           `json:"as_of"`
}

type ReconciliationResponse struct {
	Product      ProductResponse `json:"product"`
	AsOf         *string         `json:"as_of"`
	MatchedSales []models.Sale   `json:"matched_sales"`
	EarlySales   []models.Sale   `json:"early_sales"`
}

// ProductRequest is the full editable field set. Create takes it as is;
// update overlays an UpdateProductRequest onto the stored product first.
type ProductRequest struct {
	Name             string           `json:"name" validate:"required,max=150"`
	Category         string           `json:"category" validate:"required,max=100"`
	Price            *decimal.Decimal `json:"price" validate:"required,gte=0"`
	InitialStock     *int             `json:"initial_stock" validate:"required,gte=0"`
	InitialStockDate string           `json:"initial_stock_date"` // YYYY-MM-DD or timestamp, empty for none
	MinStock         int              `json:"min_stock" validate:"gte=0"`
	Description      string           `json:"description" validate:"max=1000"`
}

type UpdateProductRequest struct {
	Name             *string          `json:"name"`
	Category         *string          `json:"category"`
	Price            *decimal.Decimal `json:"price"`
	InitialStock     *int             `json:"initial_stock"`
	InitialStockDate *string          `json:"initial_stock_date"` // "" clears the date
	MinStock         *int             `json:"min_stock"`
	Description      *string          `json:"description"`
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=1000"`
}

// GET /api/products?search=&category=&stock_status=&sort=&order=&page=&page_size=&as_of=
func ListProductsHandler(svc *Service) fiber.Handler {
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

		page, info := utils.Paginate(rows, q.Page, q.PageSize)
		resp := ListProductsResponse{
			Items:      make([]ProductResponse, 0, len(page)),
			Pagination: info,
			Stats:      stock.Aggregate(items(rows)),
			AsOf:       formatDay(cal, q.AsOf),
		}
		for _, r := range page {
			resp.Items = append(resp.Items, toResponse(cal, r))
		}
		return c.JSON(resp)
	}
}

// GET /api/products/stats?as_of=
func ProductStatsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		asOf, err := parseAsOf(c, svc.Calendar())
		if err != nil {
			return err
		}
		stats, err := svc.Stats(c.UserContext(), asOf)
		if err != nil {
			return err
		}
		return c.JSON(stats)
	}
}

// GET /api/products/:id
func GetProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		row, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return notFound(err)
		}
		return c.JSON(toResponse(svc.Calendar(), row))
	}
}

// GET /api/products/:id/reconciliation?as_of=
func ProductReconciliationHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cal := svc.Calendar()
		asOf, err := parseAsOf(c, cal)
		if err != nil {
			return err
		}
		rec, err := svc.Reconcile(c.UserContext(), c.Params("id"), asOf)
		if err != nil {
			return notFound(err)
		}
		return c.JSON(ReconciliationResponse{
			Product:      toResponse(cal, Row{Product: rec.Product, Result: rec.Result}),
			AsOf:         formatDay(cal, asOf),
			MatchedSales: rec.Matched,
			EarlySales:   rec.Early,
		})
	}
}

// POST /api/products
func CreateProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		in, err := body.input(svc.Calendar())
		if err != nil {
			return err
		}

		u, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		row, err := svc.Create(c.UserContext(), u, in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toResponse(svc.Calendar(), row))
	}
}

// PUT /api/products/:id
func UpdateProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cal := svc.Calendar()
		id := c.Params("id")

		current, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return notFound(err)
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		form := requestFromProduct(current.Product)
		body.overlay(&form)
		in, err := form.input(cal)
		if err != nil {
			return err
		}

		u, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		row, err := svc.Update(c.UserContext(), u, id, in)
		if err != nil {
			return notFound(err)
		}
		return c.JSON(toResponse(cal, row))
	}
}

// DELETE /api/products/:id (admin)
func DeleteProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		if err := svc.Delete(c.UserContext(), u, c.Params("id")); err != nil {
			return notFound(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/products/bulk-delete (admin)
func BulkDeleteProductsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkDeleteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := utils.ValidateStruct(body); err != nil {
			return err
		}

		u, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		n, err := svc.DeleteMany(c.UserContext(), u, body.IDs)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"deleted": n})
	}
}

// POST /api/products/refresh
func RefreshProductsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := svc.Refresh(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"updated": n})
	}
}

// GET /api/categories
func ListCategoriesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cats, err := svc.Categories(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(cats)
	}
}

func (r ProductRequest) input(cal stock.Calendar) (ProductInput, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	r.Description = strings.TrimSpace(r.Description)
	if err := utils.ValidateStruct(r); err != nil {
		return ProductInput{}, err
	}

	in := ProductInput{
		Name:         r.Name,
		Category:     r.Category,
		Price:        r.Price.Round(2),
		InitialStock: *r.InitialStock,
		MinStock:     r.MinStock,
		Description:  r.Description,
	}
	if raw := strings.TrimSpace(r.InitialStockDate); raw != "" {
		d, err := cal.ParseDate(raw)
		if err != nil {
			return ProductInput{}, utils.NewFieldError("initial_stock_date", "date")
		}
		in.InitialStockDate = &d
	}
	return in, nil
}

func requestFromProduct(p models.Product) ProductRequest {
	price := p.Price
	initial := p.InitialStock
	r := ProductRequest{
		Name:         p.Name,
		Category:     p.Category,
		Price:        &price,
		InitialStock: &initial,
		MinStock:     p.MinStock,
		Description:  p.Description,
	}
	if p.InitialStockDate != nil {
		r.InitialStockDate = p.InitialStockDate.Format(time.RFC3339Nano)
	}
	return r
}

func (u UpdateProductRequest) overlay(r *ProductRequest) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Category != nil {
		r.Category = *u.Category
	}
	if u.Price != nil {
		r.Price = u.Price
	}
	if u.InitialStock != nil {
		r.InitialStock = u.InitialStock
	}
	if u.InitialStockDate != nil {
		r.InitialStockDate = *u.InitialStockDate
	}
	if u.MinStock != nil {
		r.MinStock = *u.MinStock
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
}

func toResponse(cal stock.Calendar, r Row) ProductResponse {
	it := r.Item()
	return ProductResponse{
		ID:               r.Product.ID,
		Name:             r.Product.Name,
		Category:         r.Product.Category,
		Price:            r.Product.Price,
		InitialStock:     r.Product.InitialStock,
		InitialStockDate: formatDay(cal, r.Product.InitialStockDate),
		MinStock:         r.Product.MinStock,
		Description:      r.Product.Description,
		Stock:            r.Result.Stock,
		QuantitySold:     r.Result.QuantitySold,
		Revenue:          it.Revenue(),
		Status:           it.Status(),
		IsHistorical:     r.Result.IsHistorical,
		HasEarlySales:    r.Result.HasEarlySales,
		EarlySold:        r.Result.EarlySold,
		MatchedSales:     r.Result.MatchedCount,
		CreatedAt:        r.Product.CreatedAt,
		UpdatedAt:        r.Product.UpdatedAt,
	}
}

func formatDay(cal stock.Calendar, t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := cal.Format(*t)
	return &s
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Product not found")
	}
	return err
}
