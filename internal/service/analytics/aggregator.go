package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/partsdesk/internal/domain/models"
)

// DefaultLowStockThreshold is the quantity below which an item needs a restock.
const DefaultLowStockThreshold = models.LowStockThreshold

// BrandCount is one slice of the brand distribution chart.
type BrandCount struct {
	Brand string `json:"name"`
	Count int    `json:"value"`
}

// StockLevel is one bar of the stock level and value distribution charts.
type StockLevel struct {
	Name  string          `json:"name"`
	Stock int             `json:"stock"`
	Value decimal.Decimal `json:"value"`
}

// Summary bundles the item analytics of the loaded page.
type Summary struct {
	ItemCount         int                 `json:"item_count"`
	AveragePrice      decimal.Decimal     `json:"average_price"`
	TotalValue        decimal.Decimal     `json:"total_value"`
	BrandDistribution []BrandCount        `json:"brand_distribution"`
	StockLevels       []StockLevel        `json:"stock_levels"`
	LowStock          []models.ItemRecord `json:"low_stock"`
	LowStockThreshold int                 `json:"low_stock_threshold"`
}

// BrandDistribution counts items per brand, ordered by brand name.
func BrandDistribution(items []models.ItemRecord) []BrandCount {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.Brand]++
	}

	out := make([]BrandCount, 0, len(counts))
	for brand, n := range counts {
		out = append(out, BrandCount{Brand: brand, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Brand < out[j].Brand })
	return out
}

// LowStock returns the items whose quantity is below threshold, in page order.
func LowStock(items []models.ItemRecord, threshold int) []models.ItemRecord {
	out := make([]models.ItemRecord, 0)
	for _, item := range items {
		if item.Quantity < threshold {
			out = append(out, item)
		}
	}
	return out
}

// AveragePrice is the mean price excluding VAT. It is zero for no items.
func AveragePrice(items []models.ItemRecord) decimal.Decimal {
	if len(items) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Price)
	}
	return sum.Div(decimal.NewFromInt(int64(len(items))))
}

// TotalValue is the sum of price times quantity.
func TotalValue(items []models.ItemRecord) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Value())
	}
	return total
}

// StockLevels maps every item to its stock and value bar.
func StockLevels(items []models.ItemRecord) []StockLevel {
	out := make([]StockLevel, 0, len(items))
	for _, item := range items {
		out = append(out, StockLevel{Name: item.StockCode, Stock: item.Quantity, Value: item.Value()})
	}
	return out
}

// Summarize computes every item analytic at once.
func Summarize(items []models.ItemRecord, threshold int) Summary {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return Summary{
		ItemCount:         len(items),
		AveragePrice:      AveragePrice(items),
		TotalValue:        TotalValue(items),
		BrandDistribution: BrandDistribution(items),
		StockLevels:       StockLevels(items),
		LowStock:          LowStock(items, threshold),
		LowStockThreshold: threshold,
	}
}

// AvailableBrands lists the distinct non-blank brands of items, sorted.
func AvailableBrands(items []models.ItemRecord) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, item := range items {
		brand := item.Brand
		if isBlank(brand) {
			continue
		}
		if _, ok := seen[brand]; ok {
			continue
		}
		seen[brand] = struct{}{}
		out = append(out, brand)
	}
	sort.Strings(out)
	return out
}
