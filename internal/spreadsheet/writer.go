// Package spreadsheet reads and writes the xlsx files exchanged with the
// front office: sale imports and product/sale exports.
package spreadsheet

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// Write renders the sheets into one workbook. Decimal cells are written as
// numbers so totals stay summable in Excel.
func Write(w io.Writer, sheets ...Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return err
		}

		headers := make([]any, len(sh.Headers))
		for j, h := range sh.Headers {
			headers[j] = h
		}
		if err := f.SetSheetRow(sh.Name, "A1", &headers); err != nil {
			return err
		}
		if len(headers) > 0 {
			if err := f.SetRowStyle(sh.Name, 1, 1, bold); err != nil {
				return err
			}
		}

		for r, row := range sh.Rows {
			cells := make([]any, len(row))
			for j, v := range row {
				cells[j] = cellValue(v)
			}
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sh.Name, cell, &cells); err != nil {
				return fmt.Errorf("sheet %s row %d: %w", sh.Name, r+2, err)
			}
		}
	}

	return f.Write(w)
}

func cellValue(v any) any {
	switch d := v.(type) {
	case decimal.Decimal:
		return d.InexactFloat64()
	case *decimal.Decimal:
		if d == nil {
			return nil
		}
		return d.InexactFloat64()
	}
	return v
}
