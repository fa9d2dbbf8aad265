package models

import (
	"fmt"
	"strconv"
)

// SortOrder is the direction of the item listing.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Sortable item fields.
const (
	SortByStockCode    = "stock_code"
	SortByBrand        = "brand"
	SortByQuantity     = "quantity"
	SortByPrice        = "price"
	SortByPriceWithVAT = "price_with_vat"
)

// DefaultPerPage matches the dashboard grid of six cards.
const DefaultPerPage = 6

var sortableFields = map[string]struct{}{
	SortByStockCode:    {},
	SortByBrand:        {},
	SortByQuantity:     {},
	SortByPrice:        {},
	SortByPriceWithVAT: {},
}

// IsSortable reports whether field is an accepted sort key.
func IsSortable(field string) bool {
	_, ok := sortableFields[field]
	return ok
}

// FilterState holds the search criteria and page cursor of the item list.
// Transitions return a new value; the zero value is not valid, start from
// DefaultFilterState.
type FilterState struct {
	Search    string    `json:"search" bson:"search"`
	Brand     string    `json:"brand" bson:"brand"`
	SortBy    string    `json:"sort_by" bson:"sort_by"`
	SortOrder SortOrder `json:"sort_order" bson:"sort_order"`
	Page      int       `json:"page" bson:"page"`
	PerPage   int       `json:"per_page" bson:"per_page"`
}

// DefaultFilterState is the initial state of the dashboard.
func DefaultFilterState() FilterState {
	return FilterState{
		SortBy:    SortByStockCode,
		SortOrder: SortAsc,
		Page:      1,
		PerPage:   DefaultPerPage,
	}
}

// WithSearch changes the search text and resets the page.
func (f FilterState) WithSearch(search string) FilterState {
	f.Search = search
	f.Page = 1
	return f
}

// WithBrand changes the brand filter and resets the page. Empty means all.
func (f FilterState) WithBrand(brand string) FilterState {
	f.Brand = brand
	f.Page = 1
	return f
}

// WithPerPage changes the page size and resets the page.
func (f FilterState) WithPerPage(perPage int) FilterState {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	f.PerPage = perPage
	f.Page = 1
	return f
}

// ToggleSort applies a click on a sort header: the active field flips its
// order, any other field becomes active in ascending order.
func (f FilterState) ToggleSort(field string) (FilterState, error) {
	if !IsSortable(field) {
		return f, NewValidationError("sort", fmt.Sprintf("Cannot sort by %q", field), map[string]string{"sort_by": "unknown sort field"})
	}
	if f.SortBy == field {
		if f.SortOrder == SortAsc {
			f.SortOrder = SortDesc
		} else {
			f.SortOrder = SortAsc
		}
	} else {
		f.SortBy = field
		f.SortOrder = SortAsc
	}
	f.Page = 1
	return f, nil
}

// WithPage moves to page n, clamped into [1, totalPages]. No other field changes.
func (f FilterState) WithPage(n, totalPages int) FilterState {
	if totalPages < 1 {
		totalPages = 1
	}
	switch {
	case n < 1:
		n = 1
	case n > totalPages:
		n = totalPages
	}
	f.Page = n
	return f
}

// Params renders the state as backend query parameters.
func (f FilterState) Params() map[string]string {
	params := map[string]string{
		"sort_by":    f.SortBy,
		"sort_order": string(f.SortOrder),
		"page":       strconv.Itoa(f.Page),
		"per_page":   strconv.Itoa(f.PerPage),
	}
	if f.Search != "" {
		params["search"] = f.Search
	}
	if f.Brand != "" {
		params["brand"] = f.Brand
	}
	return params
}

// Pagination is the page cursor echoed by the backend.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	PerPage     int `json:"per_page"`
	TotalItems  int `json:"total_items,omitempty"`
}
