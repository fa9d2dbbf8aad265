package models

import "github.com/shopspring/decimal"

// DailySales is one day of the sales history.
type DailySales struct {
	Date    string          `json:"date"`
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

// BrandSales aggregates the sales history per brand.
type BrandSales struct {
	Brand   string          `json:"brand"`
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

// SalesHistory is the payload of the sales history endpoint.
type SalesHistory struct {
	Daily   []DailySales `json:"daily"`
	ByBrand []BrandSales `json:"by_brand"`
}

// SaleEvent is one row of the recent sales table.
type SaleEvent struct {
	Date      string          `json:"date"`
	Brand     string          `json:"brand"`
	UnitsSold int             `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}
