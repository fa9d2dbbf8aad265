package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/partsdesk/internal/domain/models"
)

func item(code, brand string, qty int, price string) models.ItemRecord {
	return models.ItemRecord{
		StockCode: code,
		Brand:     brand,
		Quantity:  qty,
		Price:     decimal.RequireFromString(price),
	}
}

func sampleItems() []models.ItemRecord {
	return []models.ItemRecord{
		item("VK101", "CTEK", 5, "20.00"),
		item("VK102", "Garmin", 40, "149.99"),
		item("VK103", "CTEK", 9, "35.50"),
		item("VK104", "TomTom", 10, "89.00"),
	}
}

func TestTotalValue(t *testing.T) {
	// 5*20 + 40*149.99 + 9*35.5 + 10*89
	want := decimal.RequireFromString("7309.10")
	assert.True(t, want.Equal(TotalValue(sampleItems())), "got %s", TotalValue(sampleItems()))
}

func TestTotalValue_EmptyIsZero(t *testing.T) {
	assert.True(t, TotalValue(nil).IsZero())
	assert.True(t, TotalValue([]models.ItemRecord{}).IsZero())
}

func TestAveragePrice(t *testing.T) {
	// (20 + 149.99 + 35.5 + 89) / 4
	want := decimal.RequireFromString("73.6225")
	assert.True(t, want.Equal(AveragePrice(sampleItems())), "got %s", AveragePrice(sampleItems()))
}

func TestAveragePrice_EmptyIsZero(t *testing.T) {
	assert.True(t, AveragePrice(nil).IsZero())
}

func TestBrandDistribution(t *testing.T) {
	got := BrandDistribution(sampleItems())
	assert.Equal(t, []BrandCount{
		{Brand: "CTEK", Count: 2},
		{Brand: "Garmin", Count: 1},
		{Brand: "TomTom", Count: 1},
	}, got)
}

func TestLowStock_UsesStrictThreshold(t *testing.T) {
	got := LowStock(sampleItems(), DefaultLowStockThreshold)
	require.Len(t, got, 2)
	assert.Equal(t, "VK101", got[0].StockCode)
	assert.Equal(t, "VK103", got[1].StockCode)

	assert.Empty(t, LowStock(sampleItems(), 1))
}

func TestStockLevels(t *testing.T) {
	got := StockLevels(sampleItems()[:1])
	require.Len(t, got, 1)
	assert.Equal(t, "VK101", got[0].Name)
	assert.Equal(t, 5, got[0].Stock)
	assert.True(t, decimal.NewFromInt(100).Equal(got[0].Value))
}

func TestSummarize_DefaultsThreshold(t *testing.T) {
	s := Summarize(sampleItems(), 0)
	assert.Equal(t, 4, s.ItemCount)
	assert.Equal(t, DefaultLowStockThreshold, s.LowStockThreshold)
	assert.Len(t, s.LowStock, 2)
	assert.Len(t, s.StockLevels, 4)
}

func TestAvailableBrands_SortedUniqueNonBlank(t *testing.T) {
	items := append(sampleItems(), item("VK105", "  ", 1, "1"), item("VK106", "Garmin", 1, "1"))
	assert.Equal(t, []string{"CTEK", "Garmin", "TomTom"}, AvailableBrands(items))
}

func sampleHistory() models.SalesHistory {
	return models.SalesHistory{
		Daily: []models.DailySales{
			{Date: "2026-09-01", Sales: 4, Revenue: decimal.RequireFromString("80")},
			{Date: "2026-10-10", Sales: 3, Revenue: decimal.RequireFromString("60")},
			{Date: "2026-10-15", Sales: 7, Revenue: decimal.RequireFromString("400")},
			{Date: "2026-10-16", Sales: 2, Revenue: decimal.RequireFromString("300")},
			{Date: "2026-10-17", Sales: 1, Revenue: decimal.RequireFromString("20")},
			{Date: "2026-10-18", Sales: 5, Revenue: decimal.RequireFromString("100")},
		},
		ByBrand: []models.BrandSales{
			{Brand: "CTEK", Sales: 5, Revenue: decimal.RequireFromString("100")},
			{Brand: "Garmin", Sales: 2, Revenue: decimal.RequireFromString("300")},
		},
	}
}

func TestSalesTotals(t *testing.T) {
	h := sampleHistory()
	assert.Equal(t, 22, TotalUnitsSold(h))
	assert.True(t, decimal.NewFromInt(960).Equal(TotalRevenue(h)))
	assert.True(t, decimal.RequireFromString("960").Div(decimal.NewFromInt(22)).Equal(AverageSale(h)))
}

func TestAverageSale_NoUnitsIsZero(t *testing.T) {
	assert.True(t, AverageSale(models.SalesHistory{}).IsZero())
}

func TestRecentSales_LastFiveWithBrandAttribution(t *testing.T) {
	got := RecentSales(sampleHistory(), RecentSalesCount)
	require.Len(t, got, 5)
	assert.Equal(t, "2026-10-10", got[0].Date)
	assert.Equal(t, "Multiple", got[0].Brand)
	assert.Equal(t, "Garmin", got[2].Brand)
	assert.Equal(t, "CTEK", got[4].Brand)
	assert.Equal(t, 5, got[4].UnitsSold)
}

func TestFilterDaily(t *testing.T) {
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)

	week := FilterDaily(sampleHistory(), RangeWeek, now)
	require.Len(t, week.Daily, 4)
	assert.Equal(t, "2026-10-15", week.Daily[0].Date)

	month := FilterDaily(sampleHistory(), RangeMonth, now)
	assert.Len(t, month.Daily, 5)

	all := FilterDaily(sampleHistory(), RangeAll, now)
	assert.Len(t, all.Daily, 6)
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("")
	require.NoError(t, err)
	assert.Equal(t, RangeAll, r)

	r, err = ParseDateRange("Week")
	require.NoError(t, err)
	assert.Equal(t, RangeWeek, r)

	_, err = ParseDateRange("decade")
	assert.Error(t, err)
}

func TestSummarizeSales(t *testing.T) {
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	s := SummarizeSales(sampleHistory(), RangeWeek, now)
	assert.Equal(t, 15, s.TotalUnits)
	assert.True(t, decimal.NewFromInt(820).Equal(s.TotalRevenue))
	assert.Len(t, s.Recent, 4)
}
