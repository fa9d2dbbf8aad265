package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFilterState(t *testing.T) {
	f := DefaultFilterState()
	assert.Equal(t, FilterState{SortBy: SortByStockCode, SortOrder: SortAsc, Page: 1, PerPage: 6}, f)
}

func TestFilterChangesResetPage(t *testing.T) {
	f := DefaultFilterState()
	f.Page = 4

	assert.Equal(t, 1, f.WithSearch("vk").Page)
	assert.Equal(t, 1, f.WithBrand("CTEK").Page)
	assert.Equal(t, 1, f.WithPerPage(12).Page)
	assert.Equal(t, DefaultPerPage, f.WithPerPage(0).PerPage)
	assert.Equal(t, 4, f.Page, "transitions do not mutate the receiver")
}

func TestToggleSort(t *testing.T) {
	f := DefaultFilterState()
	f.Page = 3

	f, err := f.ToggleSort(SortByStockCode)
	require.NoError(t, err)
	assert.Equal(t, SortDesc, f.SortOrder)
	assert.Equal(t, 1, f.Page)

	f, err = f.ToggleSort(SortByStockCode)
	require.NoError(t, err)
	assert.Equal(t, SortAsc, f.SortOrder)

	f, _ = f.ToggleSort(SortByStockCode)
	f, err = f.ToggleSort(SortByPrice)
	require.NoError(t, err)
	assert.Equal(t, SortByPrice, f.SortBy)
	assert.Equal(t, SortAsc, f.SortOrder)

	_, err = f.ToggleSort("colour")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWithPageClamps(t *testing.T) {
	f := DefaultFilterState().WithSearch("vk")

	assert.Equal(t, 3, f.WithPage(3, 5).Page)
	assert.Equal(t, 5, f.WithPage(9, 5).Page)
	assert.Equal(t, 1, f.WithPage(0, 5).Page)
	assert.Equal(t, 1, f.WithPage(2, 0).Page)
	assert.Equal(t, "vk", f.WithPage(2, 5).Search)
}

func TestParams(t *testing.T) {
	p := DefaultFilterState().Params()
	assert.Equal(t, map[string]string{"sort_by": "stock_code", "sort_order": "asc", "page": "1", "per_page": "6"}, p)

	p = DefaultFilterState().WithSearch("vk").WithBrand("CTEK").Params()
	assert.Equal(t, "vk", p["search"])
	assert.Equal(t, "CTEK", p["brand"])
}

func TestItemRecordFlags(t *testing.T) {
	low := ItemRecord{Quantity: 9, Price: decimal.NewFromInt(3)}
	assert.True(t, low.IsLowStock())
	assert.True(t, low.CanRestock())
	assert.True(t, decimal.NewFromInt(27).Equal(low.Value()))

	full := ItemRecord{Quantity: MaxQuantity}
	assert.False(t, full.IsLowStock())
	assert.True(t, full.IsMaxStock())
	assert.False(t, full.CanRestock())

	assert.False(t, ItemRecord{Quantity: 10}.IsLowStock())
}

func TestNewItemNormalize(t *testing.T) {
	n := NewItem{StockCode: "  vk101 ", Brand: " CTEK "}.Normalize()
	assert.Equal(t, "VK101", n.StockCode)
	assert.Equal(t, "CTEK", n.Brand)
	assert.Equal(t, DefaultStockType, n.StockType)
	assert.Equal(t, DefaultDescription, n.Description)
}

func TestNewItemValidate(t *testing.T) {
	valid := NewItem{Quantity: 5, Price: decimal.RequireFromString("20.00"), Brand: "CTEK"}
	assert.NoError(t, valid.Validate())

	edge := valid
	edge.Quantity = MaxQuantity
	assert.NoError(t, edge.Validate())

	err := NewItem{Quantity: -1, Price: decimal.RequireFromString("-2"), Brand: ""}.Validate()
	require.ErrorIs(t, err, ErrValidation)
	assert.Len(t, FieldErrors(err), 3)

	over := valid
	over.Quantity = 101
	err = over.Validate()
	require.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrStockLimit)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestItemPatch(t *testing.T) {
	price := decimal.RequireFromString("20.00")
	brand := " CTEK "
	qty := 7
	p := ItemPatch{Price: &price, Brand: &brand, Quantity: &qty}
	require.NoError(t, p.Validate())

	current := ItemRecord{Price: decimal.NewFromInt(20), Brand: "CTEK", Quantity: 5}
	diff := p.Diff(current)
	assert.Nil(t, diff.Price, "20.00 equals 20")
	assert.Nil(t, diff.Brand, "brand is compared trimmed")
	require.NotNil(t, diff.Quantity)
	assert.Equal(t, 7, *diff.Quantity)

	assert.True(t, ItemPatch{}.IsEmpty())
	assert.True(t, ItemPatch{Price: &price}.Diff(current).IsEmpty())

	zero := 0
	assert.NoError(t, ItemPatch{Quantity: &zero}.Validate())

	blank := "  "
	assert.ErrorIs(t, ItemPatch{Brand: &blank}.Validate(), ErrValidation)

	tooMany := 101
	assert.ErrorIs(t, ItemPatch{Quantity: &tooMany}.Validate(), ErrStockLimit)
}

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewConflictError("sell", ErrInsufficientStock, "Only 2 left"))

	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NotErrorIs(t, err, ErrStockLimit)
	assert.Equal(t, "Only 2 left", UserMessage(err, "fallback"))
	assert.Equal(t, "sell: conflict: Only 2 left", errors.Unwrap(err).Error())

	network := &Error{Kind: ErrNetwork, Op: "list items", Err: errors.New("connection refused")}
	assert.Equal(t, "fallback", UserMessage(network, "fallback"))
	assert.Equal(t, "list items: network error: connection refused", network.Error())

	assert.Equal(t, "fallback", UserMessage(errors.New("plain"), "fallback"))
	assert.Nil(t, FieldErrors(errors.New("plain")))
}

func TestNewSnapshotRecord(t *testing.T) {
	stats := StatsSnapshot{TotalItems: 3, TotalValue: decimal.RequireFromString("10.50"), TotalValueVAT: decimal.RequireFromString("12.60"), LowStockItems: 1}
	rec := NewSnapshotRecord(stats, DefaultFilterState(), time.Date(2026, 10, 19, 22, 0, 0, 0, time.FixedZone("CEST", 2*3600)))

	assert.Equal(t, 3, rec.Stats.TotalItems)
	assert.InDelta(t, 10.5, rec.Stats.TotalValue, 1e-9)
	assert.InDelta(t, 12.6, rec.Stats.TotalValueVAT, 1e-9)
	assert.Equal(t, "UTC", rec.TakenAt.Location().String())
}
