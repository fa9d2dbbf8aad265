package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/partsdesk/internal/domain/models"
)

const dateLayout = "2006-01-02"

// DateRange is the window of the sales overview selector.
type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
	RangeYear  DateRange = "year"
)

// ParseDateRange accepts week, month, year or all; empty means all.
func ParseDateRange(value string) (DateRange, error) {
	switch r := DateRange(strings.ToLower(strings.TrimSpace(value))); r {
	case "", RangeAll:
		return RangeAll, nil
	case RangeWeek, RangeMonth, RangeYear:
		return r, nil
	default:
		return "", fmt.Errorf("unsupported date range %q", value)
	}
}

func (r DateRange) days() int {
	switch r {
	case RangeWeek:
		return 7
	case RangeMonth:
		return 30
	case RangeYear:
		return 365
	default:
		return 0
	}
}

// SalesSummary bundles the sales overview figures.
type SalesSummary struct {
	Range        DateRange           `json:"range"`
	TotalUnits   int                 `json:"total_units"`
	TotalRevenue decimal.Decimal     `json:"total_revenue"`
	AverageSale  decimal.Decimal     `json:"average_sale"`
	Daily        []models.DailySales `json:"daily"`
	ByBrand      []models.BrandSales `json:"by_brand"`
	Recent       []models.SaleEvent  `json:"recent"`
}

// RecentSalesCount is the number of rows in the recent sales table.
const RecentSalesCount = 5

// TotalUnitsSold sums the units of the daily series.
func TotalUnitsSold(history models.SalesHistory) int {
	total := 0
	for _, day := range history.Daily {
		total += day.Sales
	}
	return total
}

// TotalRevenue sums the revenue of the daily series.
func TotalRevenue(history models.SalesHistory) decimal.Decimal {
	total := decimal.Zero
	for _, day := range history.Daily {
		total = total.Add(day.Revenue)
	}
	return total
}

// AverageSale is revenue per unit sold. It is zero when nothing was sold.
func AverageSale(history models.SalesHistory) decimal.Decimal {
	units := TotalUnitsSold(history)
	if units == 0 {
		return decimal.Zero
	}
	return TotalRevenue(history).Div(decimal.NewFromInt(int64(units)))
}

// RecentSales returns the last n days as sale events. A day is attributed to
// the brand whose total units equal the day's units, otherwise to "Multiple".
func RecentSales(history models.SalesHistory, n int) []models.SaleEvent {
	daily := history.Daily
	if n >= 0 && len(daily) > n {
		daily = daily[len(daily)-n:]
	}

	out := make([]models.SaleEvent, 0, len(daily))
	for _, day := range daily {
		brand := "Multiple"
		for _, b := range history.ByBrand {
			if b.Sales == day.Sales {
				brand = b.Brand
				break
			}
		}
		out = append(out, models.SaleEvent{
			Date:      day.Date,
			Brand:     brand,
			UnitsSold: day.Sales,
			Revenue:   day.Revenue,
		})
	}
	return out
}

// FilterDaily keeps the days within the range ending at now. Days with an
// unreadable date are dropped unless the range is RangeAll.
func FilterDaily(history models.SalesHistory, r DateRange, now time.Time) models.SalesHistory {
	days := r.days()
	if days == 0 {
		return history
	}

	end := truncateDay(now)
	start := end.AddDate(0, 0, -(days - 1))

	out := models.SalesHistory{ByBrand: history.ByBrand, Daily: make([]models.DailySales, 0, len(history.Daily))}
	for _, day := range history.Daily {
		date, err := parseDate(day.Date)
		if err != nil {
			continue
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		out.Daily = append(out.Daily, day)
	}
	return out
}

// SummarizeSales builds the sales overview for the selected range.
func SummarizeSales(history models.SalesHistory, r DateRange, now time.Time) SalesSummary {
	filtered := FilterDaily(history, r, now)
	if filtered.Daily == nil {
		filtered.Daily = []models.DailySales{}
	}
	if filtered.ByBrand == nil {
		filtered.ByBrand = []models.BrandSales{}
	}
	return SalesSummary{
		Range:        r,
		TotalUnits:   TotalUnitsSold(filtered),
		TotalRevenue: TotalRevenue(filtered),
		AverageSale:  AverageSale(filtered),
		Daily:        filtered.Daily,
		ByBrand:      filtered.ByBrand,
		Recent:       RecentSales(filtered, RecentSalesCount),
	}
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(value) > 10 {
		value = value[:10]
	}
	return time.Parse(dateLayout, value)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
