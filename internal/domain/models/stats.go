package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatsSnapshot is the backend-computed summary of the whole filtered inventory.
type StatsSnapshot struct {
	TotalItems    int             `json:"total_items"`
	TotalValue    decimal.Decimal `json:"total_value"`
	TotalValueVAT decimal.Decimal `json:"total_value_vat"`
	LowStockItems int             `json:"low_stock_items"`
}

// ItemPage is the envelope returned by the item listing.
type ItemPage struct {
	Items      []ItemRecord  `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Statistics StatsSnapshot `json:"statistics"`
}

// SnapshotRecord is a StatsSnapshot persisted for history.
type SnapshotRecord struct {
	TakenAt time.Time     `bson:"taken_at" json:"taken_at"`
	Filters FilterState   `bson:"filters" json:"filters"`
	Stats   SnapshotStats `bson:"stats" json:"stats"`
}

// SnapshotStats stores the money columns as floats so they stay queryable
// in MongoDB.
type SnapshotStats struct {
	TotalItems    int     `bson:"total_items" json:"total_items"`
	TotalValue    float64 `bson:"total_value" json:"total_value"`
	TotalValueVAT float64 `bson:"total_value_vat" json:"total_value_vat"`
	LowStockItems int     `bson:"low_stock_items" json:"low_stock_items"`
}

// NewSnapshotRecord captures stats taken under filters at the given time.
func NewSnapshotRecord(stats StatsSnapshot, filters FilterState, at time.Time) SnapshotRecord {
	return SnapshotRecord{
		TakenAt: at.UTC(),
		Filters: filters,
		Stats: SnapshotStats{
			TotalItems:    stats.TotalItems,
			TotalValue:    stats.TotalValue.InexactFloat64(),
			TotalValueVAT: stats.TotalValueVAT.InexactFloat64(),
			LowStockItems: stats.LowStockItems,
		},
	}
}
