// Package testutil provides an in-memory shop backend for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/partsdesk/internal/domain/models"
)

// VATRate is the rate the fake backend applies to prices.
var VATRate = decimal.RequireFromString("0.20")

// Backend mimics the REST surface of the shop backend.
type Backend struct {
	mu      sync.Mutex
	items   map[string]models.ItemRecord
	sales   models.SalesHistory
	nextID  int
	calls   []string
	updates []map[string]any
	failing map[string]int
	server  *httptest.Server
}

// NewBackend starts a fake backend and stops it when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		items:   make(map[string]models.ItemRecord),
		failing: make(map[string]int),
	}

	r := gin.New()
	api := r.Group("/api")
	api.GET("/items", b.list)
	api.POST("/items", b.create)
	api.GET("/items/export", b.exportItems)
	api.PUT("/items/:code", b.update)
	api.POST("/items/:code/sell", b.sell)
	api.DELETE("/items/:code", b.remove)
	api.GET("/sales/history", b.history)
	api.GET("/sales/export", b.exportSales)

	b.server = httptest.NewServer(r)
	t.Cleanup(b.server.Close)
	return b
}

// URL is the API base URL, including the /api prefix.
func (b *Backend) URL() string {
	return b.server.URL + "/api"
}

// Seed stores items directly, computing their VAT price.
func (b *Backend) Seed(items ...models.ItemRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, item := range items {
		item.PriceWithVAT = withVAT(item.Price)
		b.items[item.StockCode] = item
	}
}

// SetSales replaces the sales history.
func (b *Backend) SetSales(history models.SalesHistory) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sales = history
}

// Item returns the stored record.
func (b *Backend) Item(code string) (models.ItemRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	item, ok := b.items[code]
	return item, ok
}

// Calls returns "METHOD path" for every request served so far.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// Updates returns the JSON bodies of every PUT /items/{code} received.
func (b *Backend) Updates() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.updates...)
}

// CountCalls counts served requests whose "METHOD path" starts with prefix.
func (b *Backend) CountCalls(prefix string) int {
	n := 0
	for _, c := range b.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// FailNext makes the next n requests whose "METHOD path" starts with prefix
// answer 500.
func (b *Backend) FailNext(prefix string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[prefix] = n
}

func (b *Backend) record(c *gin.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	call := c.Request.Method + " " + c.Request.URL.Path
	b.calls = append(b.calls, call)
	for prefix, n := range b.failing {
		if n > 0 && strings.HasPrefix(call, prefix) {
			b.failing[prefix] = n - 1
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return false
		}
	}
	return true
}

func (b *Backend) list(c *gin.Context) {
	if !b.record(c) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	search := strings.ToLower(c.Query("search"))
	brand := c.Query("brand")

	matched := make([]models.ItemRecord, 0, len(b.items))
	for _, item := range b.items {
		if brand != "" && item.Brand != brand {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(item.StockCode), search) &&
			!strings.Contains(strings.ToLower(item.Brand), search) &&
			!strings.Contains(strings.ToLower(item.Description), search) {
			continue
		}
		matched = append(matched, item)
	}

	sortItems(matched, c.DefaultQuery("sort_by", models.SortByStockCode), c.DefaultQuery("sort_order", "asc"))

	stats := models.StatsSnapshot{TotalItems: len(matched), TotalValue: decimal.Zero, TotalValueVAT: decimal.Zero}
	for _, item := range matched {
		qty := decimal.NewFromInt(int64(item.Quantity))
		stats.TotalValue = stats.TotalValue.Add(item.Price.Mul(qty))
		stats.TotalValueVAT = stats.TotalValueVAT.Add(item.PriceWithVAT.Mul(qty))
		if item.Quantity < models.LowStockThreshold {
			stats.LowStockItems++
		}
	}

	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "6"))
	if perPage < 1 {
		perPage = 6
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	totalPages := (len(matched) + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}

	c.JSON(http.StatusOK, gin.H{
		"items": matched[start:end],
		"pagination": models.Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			PerPage:     perPage,
			TotalItems:  len(matched),
		},
		"statistics": stats,
	})
}

type createBody struct {
	StockCode   string  `json:"stock_code"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Brand       string  `json:"brand"`
	StockType   string  `json:"stock_type"`
	Description string  `json:"description"`
}

func (b *Backend) create(c *gin.Context) {
	if !b.record(c) {
		return
	}
	var body createBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if body.Quantity <= 0 || body.Quantity > models.MaxQuantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be between 1 and 100"})
		return
	}
	if body.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be greater than 0"})
		return
	}

	code := body.StockCode
	if code == "" {
		b.nextID++
		code = "AUTO" + strconv.Itoa(b.nextID)
	}
	if _, exists := b.items[code]; exists {
		c.JSON(http.StatusConflict, gin.H{"error": "Item " + code + " already exists"})
		return
	}

	price := decimal.NewFromFloat(body.Price)
	b.items[code] = models.ItemRecord{
		StockCode:    code,
		Brand:        body.Brand,
		Quantity:     body.Quantity,
		Price:        price,
		PriceWithVAT: withVAT(price),
		StockType:    body.StockType,
		Description:  body.Description,
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Item " + code + " added successfully"})
}

func (b *Backend) update(c *gin.Context) {
	if !b.record(c) {
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}
	var body struct {
		Price    *float64 `json:"price"`
		Brand    *string  `json:"brand"`
		Quantity *int     `json:"quantity"`
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}
	_ = json.Unmarshal(raw, &fields)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.updates = append(b.updates, fields)

	item, ok := b.items[c.Param("code")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	if body.Price != nil {
		if *body.Price <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be greater than 0"})
			return
		}
		item.Price = decimal.NewFromFloat(*body.Price)
		item.PriceWithVAT = withVAT(item.Price)
	}
	if body.Brand != nil {
		item.Brand = *body.Brand
	}
	if body.Quantity != nil {
		if *body.Quantity < 0 || *body.Quantity > models.MaxQuantity {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity would exceed 100 items limit"})
			return
		}
		item.Quantity = *body.Quantity
	}
	b.items[item.StockCode] = item
	c.JSON(http.StatusOK, item)
}

func (b *Backend) sell(c *gin.Context) {
	if !b.record(c) {
		return
	}
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	item, ok := b.items[c.Param("code")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	if body.Quantity <= 0 || body.Quantity > item.Quantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient stock"})
		return
	}
	item.Quantity -= body.Quantity
	b.items[item.StockCode] = item

	revenue := item.Price.Mul(decimal.NewFromInt(int64(body.Quantity)))
	b.sales.Daily = append(b.sales.Daily, models.DailySales{Date: "2026-10-19", Sales: body.Quantity, Revenue: revenue})
	c.JSON(http.StatusOK, gin.H{"message": "Sale recorded"})
}

func (b *Backend) remove(c *gin.Context) {
	if !b.record(c) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	code := c.Param("code")
	if _, ok := b.items[code]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	delete(b.items, code)
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted"})
}

func (b *Backend) exportItems(c *gin.Context) {
	if !b.record(c) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	items := make([]models.ItemRecord, 0, len(b.items))
	for _, item := range b.items {
		items = append(items, item)
	}
	sortItems(items, models.SortByStockCode, "asc")

	var sb strings.Builder
	sb.WriteString("stock_code,brand,quantity,price,price_with_vat,stock_type,description\n")
	for _, item := range items {
		sb.WriteString(strings.Join([]string{
			item.StockCode,
			item.Brand,
			strconv.Itoa(item.Quantity),
			item.Price.StringFixed(2),
			item.PriceWithVAT.StringFixed(2),
			item.StockType,
			item.Description,
		}, ","))
		sb.WriteString("\n")
	}
	c.Data(http.StatusOK, "text/csv", []byte(sb.String()))
}

func (b *Backend) history(c *gin.Context) {
	if !b.record(c) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.sales
	if out.Daily == nil {
		out.Daily = []models.DailySales{}
	}
	if out.ByBrand == nil {
		out.ByBrand = []models.BrandSales{}
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) exportSales(c *gin.Context) {
	if !b.record(c) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("date,sales,revenue\n")
	for _, day := range b.sales.Daily {
		sb.WriteString(day.Date + "," + strconv.Itoa(day.Sales) + "," + day.Revenue.StringFixed(2) + "\n")
	}
	c.Data(http.StatusOK, "text/csv", []byte(sb.String()))
}

func withVAT(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Add(VATRate)).Round(2)
}

func sortItems(items []models.ItemRecord, field, order string) {
	less := func(a, b models.ItemRecord) bool {
		switch field {
		case models.SortByBrand:
			return a.Brand < b.Brand
		case models.SortByQuantity:
			return a.Quantity < b.Quantity
		case models.SortByPrice:
			return a.Price.LessThan(b.Price)
		case models.SortByPriceWithVAT:
			return a.PriceWithVAT.LessThan(b.PriceWithVAT)
		default:
			return a.StockCode < b.StockCode
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].StockCode < items[j].StockCode })
	sort.SliceStable(items, func(i, j int) bool {
		if order == "desc" {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}
