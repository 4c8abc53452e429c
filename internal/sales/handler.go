package sales

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"salestrack-backend/internal/auth"
	"salestrack-backend/internal/models"
	"salestrack-backend/internal/spreadsheet"
	"salestrack-backend/internal/stock"
	"salestrack-backend/internal/utils"
)

type CreateSaleRequest struct {
	Product  string           `json:"product" validate:"required,max=150"`
	Category string           `json:"category" validate:"required,max=100"`
	Date     string           `json:"date" validate:"required"` // YYYY-MM-DD or timestamp
	Quantity *int             `json:"quantity" validate:"required,gte=0,lte=2147483647"`
	Price    *decimal.Decimal `json:"price" validate:"required,gte=0"`
	Total    *decimal.Decimal `json:"total" validate:"omitempty,gte=0"`
}

type ListSalesResponse struct {
	Items      []models.Sale      `json:"items"`
	Pagination utils.PageInfo     `json:"pagination"`
	Summary    stock.SalesSummary `json:"summary"`
}

// GET /api/sales?from=&to=&product=&category=&search=&order=desc&page=&page_size=
func ListSalesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := parseFilter(c, svc.Calendar())
		if err != nil {
			return err
		}
		list, err := svc.List(c.UserContext(), f)
		if err != nil {
			return err
		}

		page, info := utils.Paginate(list, c.QueryInt("page", 1), c.QueryInt("page_size", utils.DefaultPageSize))
		return c.JSON(ListSalesResponse{
			Items:      page,
			Pagination: info,
			Summary:    stock.SummarizeSales(list),
		})
	}
}

// POST /api/sales
func CreateSaleHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		body.Product = strings.TrimSpace(body.Product)
		body.Category = strings.TrimSpace(body.Category)
		if err := utils.ValidateStruct(body); err != nil {
			return err
		}
		date, err := svc.Calendar().ParseDate(body.Date)
		if err != nil {
			return utils.NewFieldError("date", "date")
		}

		u, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		sale, err := svc.Create(c.UserContext(), u, SaleInput{
			Product:  body.Product,
			Category: body.Category,
			Date:     date,
			Quantity: *body.Quantity,
			Price:    *body.Price,
			Total:    body.Total,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(sale)
	}
}

// POST /api/sales/import (multipart, field "file")
func ImportSalesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "File is missing, send it as the \"file\" form field")
		}
		if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Only .xlsx files can be imported")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fmt.Errorf("could not open upload: %w", err)
		}
		defer file.Close()

		u, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		res, err := svc.Import(c.UserContext(), u, file)
		if err != nil {
			var ie *spreadsheet.ImportError
			switch {
			case errors.Is(err, ErrImportInProgress):
				return fiber.NewError(fiber.StatusConflict, err.Error())
			case errors.As(err, &ie):
				return err
			case errors.Is(err, spreadsheet.ErrUnreadable), errors.Is(err, spreadsheet.ErrNoSheet):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GET /api/sales/export?from=&to=
func ExportSalesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cal := svc.Calendar()
		f, err := parseFilter(c, cal)
		if err != nil {
			return err
		}
		list, err := svc.List(c.UserContext(), f)
		if err != nil {
			return err
		}

		sheet := spreadsheet.Sheet{
			Name:    "Sales",
			Headers: []string{"Date", "Product", "Category", "Quantity", "Price", "Total", "Import Batch"},
		}
		for _, s := range list {
			sheet.Rows = append(sheet.Rows, []any{
				cal.FormatTime(s.Date),
				s.Product, s.Category, s.Quantity, s.Price, s.Total, s.ImportBatch,
			})
		}
		sum := stock.SummarizeSales(list)
		summary := spreadsheet.Sheet{
			Name:    "Summary",
			Headers: []string{"Sales", "Quantity", "Revenue"},
			Rows:    [][]any{{sum.Count, sum.Quantity, sum.Revenue}},
		}

		var buf bytes.Buffer
		if err := spreadsheet.Write(&buf, sheet, summary); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, spreadsheet.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="sales-%s.xlsx"`, rangeLabel(cal, f)))
		return c.Send(buf.Bytes())
	}
}

func parseFilter(c *fiber.Ctx, cal stock.Calendar) (Filter, error) {
	from, err := cal.ParseOptionalDay(strings.TrimSpace(c.Query("from")))
	if err != nil {
		return Filter{}, fiber.NewError(fiber.StatusBadRequest, "from must be a date in YYYY-MM-DD format")
	}
	to, err := cal.ParseOptionalDay(strings.TrimSpace(c.Query("to")))
	if err != nil {
		return Filter{}, fiber.NewError(fiber.StatusBadRequest, "to must be a date in YYYY-MM-DD format")
	}
	if from != nil && to != nil && to.Before(*from) {
		return Filter{}, fiber.NewError(fiber.StatusBadRequest, "to must not be before from")
	}

	order := strings.ToLower(c.Query("order", "desc"))
	if order != "asc" && order != "desc" {
		return Filter{}, fiber.NewError(fiber.StatusBadRequest, "order must be asc or desc")
	}

	return Filter{
		From:     from,
		To:       to,
		Product:  c.Query("product"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Desc:     order == "desc",
	}, nil
}

func rangeLabel(cal stock.Calendar, f Filter) string {
	switch {
	case f.From != nil && f.To != nil:
		return cal.Format(*f.From) + "_" + cal.Format(*f.To)
	case f.From != nil:
		return "from-" + cal.Format(*f.From)
	case f.To != nil:
		return "to-" + cal.Format(*f.To)
	}
	return "all"
}
