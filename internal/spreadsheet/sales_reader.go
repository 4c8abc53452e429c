package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"salestrack-backend/internal/models"
	"salestrack-backend/internal/stock"
)

const (
	// MaxImportRows bounds one upload.
	MaxImportRows = 20000
	// MaxQuantity bounds one sale line so it always fits an int column.
	MaxQuantity = math.MaxInt32
	// maxRowErrors caps the reported problems of a rejected file.
	maxRowErrors = 50
)

var (
	ErrUnreadable = errors.New("file is not a readable xlsx workbook")
	ErrNoSheet    = errors.New("workbook has no sheet")
)

// RowError points at a 1-based spreadsheet row as shown in Excel.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportError rejects a whole file.
type ImportError struct {
	Rows []RowError
}

func (e *ImportError) Error() string {
	if len(e.Rows) == 0 {
		return "invalid sales file"
	}
	first := e.Rows[0]
	if len(e.Rows) == 1 {
		return fmt.Sprintf("row %d: %s", first.Row, first.Message)
	}
	return fmt.Sprintf("row %d: %s (and %d more)", first.Row, first.Message, len(e.Rows)-1)
}

type column int

const (
	colDate column = iota
	colProduct
	colCategory
	colQuantity
	colPrice
	colTotal
	columnCount
)

var headerAliases = map[string]column{
	"date":         colDate,
	"sale date":    colDate,
	"product":      colProduct,
	"product name": colProduct,
	"name":         colProduct,
	"category":     colCategory,
	"quantity":     colQuantity,
	"qty":          colQuantity,
	"price":        colPrice,
	"unit price":   colPrice,
	"total":        colTotal,
	"amount":       colTotal,
}

var requiredColumns = []struct {
	col  column
	name string
}{
	{colDate, "Date"},
	{colProduct, "Product"},
	{colCategory, "Category"},
	{colQuantity, "Quantity"},
	{colPrice, "Price"},
}

// ReadSales parses the first sheet of an xlsx sale ledger. The first row is
// the header; columns are found by name so their order is free. Total may be
// left out and defaults to quantity * price. Any bad row rejects the file.
func ReadSales(r io.Reader, cal stock.Calendar) ([]models.Sale, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	// Raw values keep date cells as serial numbers instead of locale text.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %s: %v", ErrUnreadable, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, &ImportError{Rows: []RowError{{Row: 1, Message: "file is empty"}}}
	}

	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}
	if len(rows)-1 > MaxImportRows {
		return nil, &ImportError{Rows: []RowError{{Row: MaxImportRows + 2, Message: fmt.Sprintf("at most %d rows can be imported at once", MaxImportRows)}}}
	}

	sales := make([]models.Sale, 0, len(rows)-1)
	var problems []RowError
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rowNo := i + 2
		s, msg := parseSaleRow(row, cols, cal)
		if msg != "" {
			problems = append(problems, RowError{Row: rowNo, Message: msg})
			if len(problems) >= maxRowErrors {
				break
			}
			continue
		}
		sales = append(sales, s)
	}

	if len(problems) > 0 {
		return nil, &ImportError{Rows: problems}
	}
	if len(sales) == 0 {
		return nil, &ImportError{Rows: []RowError{{Row: 2, Message: "file has no sale rows"}}}
	}
	return sales, nil
}

func mapHeader(header []string) ([columnCount]int, error) {
	var cols [columnCount]int
	for i := range cols {
		cols[i] = -1
	}
	for i, h := range header {
		c, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]
		if ok && cols[c] == -1 {
			cols[c] = i
		}
	}

	var missing []string
	for _, rc := range requiredColumns {
		if cols[rc.col] == -1 {
			missing = append(missing, rc.name)
		}
	}
	if len(missing) > 0 {
		return cols, &ImportError{Rows: []RowError{{Row: 1, Message: "missing column(s): " + strings.Join(missing, ", ")}}}
	}
	return cols, nil
}

func parseSaleRow(row []string, cols [columnCount]int, cal stock.Calendar) (models.Sale, string) {
	cell := func(c column) string {
		i := cols[c]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, err := parseCellDate(cell(colDate), cal)
	if err != nil {
		return models.Sale{}, "invalid date " + strconv.Quote(cell(colDate))
	}

	product := cell(colProduct)
	if product == "" {
		return models.Sale{}, "product is required"
	}
	if len(product) > 150 {
		return models.Sale{}, "product is longer than 150 characters"
	}
	category := cell(colCategory)
	if category == "" {
		return models.Sale{}, "category is required"
	}
	if len(category) > 100 {
		return models.Sale{}, "category is longer than 100 characters"
	}

	qty, err := decimal.NewFromString(cell(colQuantity))
	if err != nil || !qty.IsInteger() || qty.IsNegative() {
		return models.Sale{}, "quantity must be a whole number >= 0"
	}
	if qty.GreaterThan(decimal.NewFromInt(MaxQuantity)) {
		return models.Sale{}, fmt.Sprintf("quantity must not exceed %d", MaxQuantity)
	}
	price, err := decimal.NewFromString(cell(colPrice))
	if err != nil || price.IsNegative() {
		return models.Sale{}, "price must be a number >= 0"
	}

	total := price.Mul(qty)
	if raw := cell(colTotal); raw != "" {
		total, err = decimal.NewFromString(raw)
		if err != nil || total.IsNegative() {
			return models.Sale{}, "total must be a number >= 0"
		}
	}

	return models.Sale{
		Product:  product,
		Category: category,
		Date:     date,
		Quantity: int(qty.IntPart()),
		Price:    price.Round(2),
		Total:    total.Round(2),
	}, ""
}

// parseCellDate reads an Excel serial date or a typed date string.
func parseCellDate(raw string, cal stock.Calendar) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty date")
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return cal.Wall(t), nil
	}
	return cal.ParseDate(raw)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
