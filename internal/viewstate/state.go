// Package viewstate keeps the list filters, ordering and page of each screen
// per user, so a reload or another device restores the same view.
package viewstate

import (
	"time"

	"salestrack-backend/internal/stock"
	"salestrack-backend/internal/utils"
)

const (
	ScreenProducts  = "products"
	ScreenSales     = "sales"
	ScreenDashboard = "dashboard"
)

type State struct {
	Search      string `json:"search" validate:"max=200"`
	Category    string `json:"category" validate:"max=100"`
	StockStatus string `json:"stock_status" validate:"omitempty,oneof=all in_stock low_stock out_of_stock"`
	Sort        string `json:"sort" validate:"omitempty,oneof=name category price stock sold revenue min_stock date"`
	Order       string `json:"order" validate:"omitempty,oneof=asc desc"`
	Page        int    `json:"page" validate:"gte=0"`
	PageSize    int    `json:"page_size" validate:"gte=0,lte=100"`
	AsOf        string `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
	From        string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To          string `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

var defaults = map[string]State{
	ScreenProducts:  {StockStatus: "all", Sort: "name", Order: "asc", Page: 1, PageSize: utils.DefaultPageSize},
	ScreenSales:     {Sort: "date", Order: "desc", Page: 1, PageSize: utils.DefaultPageSize},
	ScreenDashboard: {Page: 1, PageSize: utils.DefaultPageSize},
}

var productSorts = map[string]bool{
	"name": true, "category": true, "price": true, "stock": true,
	"sold": true, "revenue": true, "min_stock": true,
}

var stockStatuses = map[string]bool{
	"all": true, stock.StatusInStock: true, stock.StatusLowStock: true, stock.StatusOutOfStock: true,
}

func KnownScreen(screen string) bool {
	_, ok := defaults[screen]
	return ok
}

// Default is the state of a screen nobody has touched yet.
func Default(screen string) State {
	return defaults[screen]
}

// Normalize fills in defaults and drops values that do not apply to the
// screen, so stale stored state can always be used as is.
func (s State) Normalize(screen string) State {
	def := defaults[screen]

	if !stockStatuses[s.StockStatus] || screen != ScreenProducts {
		s.StockStatus = def.StockStatus
	}
	switch screen {
	case ScreenProducts:
		if !productSorts[s.Sort] {
			s.Sort = def.Sort
		}
	default:
		s.Sort = def.Sort
	}
	if s.Order != "asc" && s.Order != "desc" {
		s.Order = def.Order
	}
	s.Page, s.PageSize = utils.NormalizePage(s.Page, s.PageSize)

	s.AsOf = validDay(s.AsOf)
	s.From = validDay(s.From)
	s.To = validDay(s.To)
	if s.From != "" && s.To != "" && s.To < s.From {
		s.From, s.To = s.To, s.From
	}
	if screen != ScreenProducts {
		s.AsOf = ""
	}
	if screen == ScreenProducts {
		s.From, s.To = "", ""
	}
	return s
}

func validDay(d string) string {
	if d == "" {
		return ""
	}
	if _, err := time.Parse(stock.DayLayout, d); err != nil {
		return ""
	}
	return d
}
