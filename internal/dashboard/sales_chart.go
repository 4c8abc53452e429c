package dashboard

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"salestrack-backend/internal/models"
	"salestrack-backend/internal/stock"
	"salestrack-backend/internal/store"
)

const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// defaults and upper bounds of ?count= per period
var periodCounts = map[string]struct{ def, max int }{
	PeriodDaily:   {7, 366},
	PeriodWeekly:  {8, 104},
	PeriodMonthly: {12, 60},
}

type SalesChartPoint struct {
	Label string `json:"label"` // first day of the bucket
	stock.SalesSummary
}

type SalesChartResponse struct {
	Period      string             `json:"period"` // daily | weekly | monthly
	From        string             `json:"from"`
	To          string             `json:"to"`
	Points      []SalesChartPoint  `json:"points"`
	GrandTotals stock.SalesSummary `json:"grand_totals"`
}

// BuildSalesChart buckets the last count periods up to now. Every bucket is
// present, empty ones with zero totals. Weeks start on Monday.
func BuildSalesChart(ctx context.Context, sales store.SaleRepository, cal stock.Calendar, period string, count int, now time.Time) (SalesChartResponse, error) {
	today := cal.StartOfDay(now)

	var first, last time.Time // first and last bucket starts
	switch period {
	case PeriodWeekly:
		last = today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
		first = last.AddDate(0, 0, -7*(count-1))
	case PeriodMonthly:
		last = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		first = last.AddDate(0, -(count - 1), 0)
	default:
		period = PeriodDaily
		last = today
		first = today.AddDate(0, 0, -(count - 1))
	}
	end := cal.EndOfDay(next(period, last).AddDate(0, 0, -1))

	ledger, err := sales.ListRange(ctx, first, end)
	if err != nil {
		return SalesChartResponse{}, err
	}

	var starts []time.Time
	for b := first; !b.After(last); b = next(period, b) {
		starts = append(starts, b)
	}
	buckets := make([][]models.Sale, len(starts))
	i := 0
	for _, s := range ledger {
		// The ledger is sorted by date, so buckets only move forward.
		for i+1 < len(starts) && !s.Date.Before(starts[i+1]) {
			i++
		}
		buckets[i] = append(buckets[i], s)
	}

	points := make([]SalesChartPoint, len(starts))
	for j, b := range starts {
		points[j] = SalesChartPoint{Label: cal.Format(b), SalesSummary: stock.SummarizeSales(buckets[j])}
	}

	return SalesChartResponse{
		Period:      period,
		From:        cal.Format(first),
		To:          cal.Format(end),
		Points:      points,
		GrandTotals: stock.SummarizeSales(ledger),
	}, nil
}

// GET /api/dashboard/sales-chart?period=daily&count=7
func SalesChartHandler(sales store.SaleRepository, cal stock.Calendar) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := c.Query("period", PeriodDaily)
		limits, ok := periodCounts[period]
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "period must be daily, weekly or monthly")
		}
		count := c.QueryInt("count", limits.def)
		if count <= 0 || count > limits.max {
			return fiber.NewError(fiber.StatusBadRequest, "count is out of range")
		}

		resp, err := BuildSalesChart(c.UserContext(), sales, cal, period, count, time.Now())
		if err != nil {
			return err
		}
		return c.JSON(resp)
	}
}

func next(period string, t time.Time) time.Time {
	switch period {
	case PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case PeriodMonthly:
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}
