package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MaxQuantity is the highest stock level a single item may hold.
	MaxQuantity = 100
	// LowStockThreshold marks items that need a restock.
	LowStockThreshold = 10

	DefaultStockType   = "Navigation system"
	DefaultDescription = "GeoVision Sat Nav"
)

// ItemRecord is one inventory line as served by the backend.
type ItemRecord struct {
	StockCode    string          `json:"stock_code"`
	Brand        string          `json:"brand"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	PriceWithVAT decimal.Decimal `json:"price_with_vat"`
	StockType    string          `json:"stock_type"`
	Description  string          `json:"description"`
}

// IsLowStock reports whether the item is below the restock threshold.
func (i ItemRecord) IsLowStock() bool {
	return i.Quantity < LowStockThreshold
}

// IsMaxStock reports whether the item sits at the quantity ceiling.
func (i ItemRecord) IsMaxStock() bool {
	return i.Quantity >= MaxQuantity
}

// CanRestock reports whether any stock may still be added.
func (i ItemRecord) CanRestock() bool {
	return i.Quantity < MaxQuantity
}

// Value is price times quantity, excluding VAT.
func (i ItemRecord) Value() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewItem is the payload of an add-item request.
type NewItem struct {
	StockCode   string
	Quantity    int
	Price       decimal.Decimal
	Brand       string
	StockType   string
	Description string
}

// Normalize upper-cases the stock code and fills the fixed descriptive fields.
func (n NewItem) Normalize() NewItem {
	n.StockCode = strings.ToUpper(strings.TrimSpace(n.StockCode))
	n.Brand = strings.TrimSpace(n.Brand)
	if strings.TrimSpace(n.StockType) == "" {
		n.StockType = DefaultStockType
	}
	if strings.TrimSpace(n.Description) == "" {
		n.Description = DefaultDescription
	}
	return n
}

// Validate checks the add-item form. Field problems come back as a
// validation error; a quantity above the ceiling is a conflict.
func (n NewItem) Validate() error {
	fields := map[string]string{}

	if n.Quantity <= 0 {
		fields["quantity"] = "Quantity must be greater than 0"
	}

	if !n.Price.IsPositive() {
		fields["price"] = "Price must be greater than 0"
	}

	if strings.TrimSpace(n.Brand) == "" {
		fields["brand"] = "Brand is required"
	}

	if len(fields) > 0 {
		return NewValidationError("create", "Please fix the form errors", fields)
	}
	if n.Quantity > MaxQuantity {
		return NewConflictError("create", ErrStockLimit, fmt.Sprintf("Quantity (%d) would exceed 100 items limit", n.Quantity))
	}
	return nil
}

// ItemPatch carries the fields of a partial update. Nil fields are left alone.
type ItemPatch struct {
	Price    *decimal.Decimal `json:"price,omitempty"`
	Brand    *string          `json:"brand,omitempty"`
	Quantity *int             `json:"quantity,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ItemPatch) IsEmpty() bool {
	return p.Price == nil && p.Brand == nil && p.Quantity == nil
}

// Validate checks every field present in the patch, with the same split
// between validation errors and the quantity ceiling conflict as NewItem.
func (p ItemPatch) Validate() error {
	fields := map[string]string{}

	if p.Price != nil && !p.Price.IsPositive() {
		fields["price"] = "Price must be greater than 0"
	}
	if p.Brand != nil && strings.TrimSpace(*p.Brand) == "" {
		fields["brand"] = "Brand cannot be empty"
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		fields["quantity"] = "Quantity cannot be negative"
	}

	if len(fields) > 0 {
		return NewValidationError("update", "Invalid item update", fields)
	}
	if p.Quantity != nil && *p.Quantity > MaxQuantity {
		return NewConflictError("update", ErrStockLimit, fmt.Sprintf("Quantity (%d) would exceed 100 items limit", *p.Quantity))
	}
	return nil
}

// Diff drops the fields that already match current, so only changes are sent.
func (p ItemPatch) Diff(current ItemRecord) ItemPatch {
	out := ItemPatch{}
	if p.Price != nil && !p.Price.Equal(current.Price) {
		price := *p.Price
		out.Price = &price
	}
	if p.Brand != nil {
		brand := strings.TrimSpace(*p.Brand)
		if brand != current.Brand {
			out.Brand = &brand
		}
	}
	if p.Quantity != nil && *p.Quantity != current.Quantity {
		qty := *p.Quantity
		out.Quantity = &qty
	}
	return out
}
