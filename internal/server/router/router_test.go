package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/partsdesk/internal/config"
	"github.com/mamadbah2/partsdesk/internal/domain/models"
	"github.com/mamadbah2/partsdesk/internal/metrics"
	"github.com/mamadbah2/partsdesk/internal/server/handlers"
	"github.com/mamadbah2/partsdesk/internal/server/router"
	"github.com/mamadbah2/partsdesk/internal/service/analytics"
	"github.com/mamadbah2/partsdesk/internal/service/export"
	"github.com/mamadbah2/partsdesk/internal/service/inventory"
	"github.com/mamadbah2/partsdesk/internal/service/mutations"
	"github.com/mamadbah2/partsdesk/internal/service/notify"
	"github.com/mamadbah2/partsdesk/internal/testutil"
	client "github.com/mamadbah2/partsdesk/pkg/clients/inventory"
)

type harness struct {
	engine  *gin.Engine
	backend *testutil.Backend
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithThreshold(t, 0)
}

func newHarnessWithThreshold(t *testing.T, threshold int) *harness {
	t.Helper()
	backend := testutil.NewBackend(t)
	c := client.NewClient(config.InventoryAPIConfig{BaseURL: backend.URL(), Timeout: 5 * time.Second})
	m := metrics.New()
	feed := notify.NewFeed(20)
	queue := mutations.NewQueue(nil, m)
	t.Cleanup(queue.Close)

	store := inventory.NewStore(c, queue, inventory.Options{
		Notifier:  feed,
		Confirmer: inventory.ContextConfirmer(),
		Recorder:  m,

		LowStockThreshold: threshold,
	})
	handler := handlers.NewDashboardHandler(handlers.Deps{
		Store:    store,
		Sales:    c,
		Exporter: export.NewService(c, export.Options{}),
		Feed:     feed,
	})

	return &harness{engine: router.New(handler, m.Handler(), nil), backend: backend}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) inventory.View {
	t.Helper()
	var view inventory.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSellFlow(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/dashboard/items", map[string]any{
		"stock_code": "vk101",
		"quantity":   5,
		"price":      "20.00",
		"brand":      "CTEK",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "VK101", view.Items[0].StockCode)
	assert.True(t, decimal.NewFromInt(24).Equal(view.Items[0].PriceWithVAT))

	rec = h.do(t, http.MethodPost, "/dashboard/items/VK101/sell", map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decodeView(t, rec).Items[0].Quantity)

	rec = h.do(t, http.MethodPost, "/dashboard/items/VK101/sell", map[string]any{"quantity": 10})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Cannot sell 10 items. Only 2 items available in stock", errorBody(t, rec)["error"])

	rec = h.do(t, http.MethodGet, "/dashboard/inventory", nil)
	assert.Equal(t, 2, decodeView(t, rec).Items[0].Quantity)

	rec = h.do(t, http.MethodGet, "/dashboard/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed struct {
		Notifications []notify.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed.Notifications, 3)
	assert.Equal(t, notify.LevelSuccess, feed.Notifications[1].Level)
	assert.Equal(t, "Sold 3 items successfully", feed.Notifications[1].Message)
	assert.Equal(t, notify.LevelError, feed.Notifications[2].Level)
}

func TestCreateValidationReturnsFields(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/dashboard/items", map[string]any{"quantity": 0, "price": 0, "brand": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := errorBody(t, rec)
	assert.Equal(t, "Please fix the form errors", body["error"])
	assert.Contains(t, body["fields"], "brand")
	assert.Empty(t, h.backend.Calls())
}

func TestUpdateAndRestock(t *testing.T) {
	h := newHarness(t)
	h.backend.Seed(models.ItemRecord{StockCode: "VK101", Brand: "CTEK", Quantity: 98, Price: decimal.NewFromInt(20)})
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/dashboard/inventory/refresh", nil).Code)

	rec := h.do(t, http.MethodPatch, "/dashboard/items/VK101", map[string]any{"price": 25.5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decimal.RequireFromString("25.5").Equal(decodeView(t, rec).Items[0].Price))

	rec = h.do(t, http.MethodPost, "/dashboard/items/VK101/restock", map[string]any{"quantity": 5})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodPost, "/dashboard/items/VK101/restock", map[string]any{"quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, decodeView(t, rec).Items[0].Quantity)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	h.backend.Seed(models.ItemRecord{StockCode: "VK101", Brand: "CTEK", Quantity: 5, Price: decimal.NewFromInt(20)})

	rec := h.do(t, http.MethodDelete, "/dashboard/items/VK101", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	_, ok := h.backend.Item("VK101")
	assert.True(t, ok)

	rec = h.do(t, http.MethodDelete, "/dashboard/items/VK101?confirm=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeView(t, rec).Items)

	rec = h.do(t, http.MethodDelete, "/dashboard/items/VK101?confirm=true", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFiltersSortAndPaging(t *testing.T) {
	h := newHarness(t)
	for i, code := range []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7"} {
		h.backend.Seed(models.ItemRecord{StockCode: code, Brand: "CTEK", Quantity: 10 + i, Price: decimal.NewFromInt(5)})
	}

	rec := h.do(t, http.MethodPost, "/dashboard/page/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	assert.Equal(t, 1, view.Filters.Page, "nothing loaded yet, so there is only one known page")

	h.do(t, http.MethodPost, "/dashboard/inventory/refresh", nil)
	rec = h.do(t, http.MethodPost, "/dashboard/page/2", nil)
	view = decodeView(t, rec)
	assert.Equal(t, 2, view.Filters.Page)
	assert.Len(t, view.Items, 1)

	perPage := 3
	rec = h.do(t, http.MethodPut, "/dashboard/filters", map[string]any{"per_page": perPage})
	view = decodeView(t, rec)
	assert.Equal(t, 1, view.Filters.Page)
	assert.Equal(t, 3, view.Pagination.TotalPages)

	rec = h.do(t, http.MethodPost, "/dashboard/sort/quantity", nil)
	view = decodeView(t, rec)
	assert.Equal(t, models.SortByQuantity, view.Filters.SortBy)
	rec = h.do(t, http.MethodPost, "/dashboard/sort/quantity", nil)
	view = decodeView(t, rec)
	assert.Equal(t, models.SortDesc, view.Filters.SortOrder)
	assert.Equal(t, "A7", view.Items[0].StockCode)

	rec = h.do(t, http.MethodPost, "/dashboard/sort/colour", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/dashboard/page/two", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackendFailureIsBadGateway(t *testing.T) {
	h := newHarness(t)
	h.backend.FailNext("GET /api/items", 1)

	rec := h.do(t, http.MethodPost, "/dashboard/inventory/refresh", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSalesAndOverview(t *testing.T) {
	h := newHarness(t)
	h.backend.Seed(models.ItemRecord{StockCode: "VK101", Brand: "CTEK", Quantity: 5, Price: decimal.NewFromInt(20)})
	h.backend.SetSales(models.SalesHistory{
		Daily:   []models.DailySales{{Date: "2026-10-18", Sales: 4, Revenue: decimal.NewFromInt(80)}},
		ByBrand: []models.BrandSales{{Brand: "CTEK", Sales: 4, Revenue: decimal.NewFromInt(80)}},
	})

	rec := h.do(t, http.MethodGet, "/dashboard/sales?range=all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sales analytics.SalesSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sales))
	assert.Equal(t, 4, sales.TotalUnits)
	require.Len(t, sales.Recent, 1)
	assert.Equal(t, "CTEK", sales.Recent[0].Brand)

	rec = h.do(t, http.MethodGet, "/dashboard/sales?range=decade", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/dashboard/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var overview struct {
		Inventory inventory.View         `json:"inventory"`
		Analytics analytics.Summary      `json:"analytics"`
		Sales     analytics.SalesSummary `json:"sales"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	assert.Len(t, overview.Inventory.Items, 1)
	assert.Equal(t, 1, overview.Analytics.ItemCount)
	assert.Equal(t, 4, overview.Sales.TotalUnits)
}

func TestOverviewUsesConfiguredThreshold(t *testing.T) {
	h := newHarnessWithThreshold(t, 3)
	h.backend.Seed(models.ItemRecord{StockCode: "VK101", Brand: "CTEK", Quantity: 5, Price: decimal.NewFromInt(20)})

	rec := h.do(t, http.MethodGet, "/dashboard/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var overview struct {
		Analytics analytics.Summary `json:"analytics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	assert.Empty(t, overview.Analytics.LowStock, "5 is not below a threshold of 3")

	rec = h.do(t, http.MethodGet, "/dashboard/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary analytics.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, overview.Analytics.LowStock, summary.LowStock)
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.backend.Seed(models.ItemRecord{StockCode: "VK101", Brand: "CTEK", Quantity: 5, Price: decimal.NewFromInt(20)})

	rec := h.do(t, http.MethodGet, "/dashboard/export/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "stock_items_")
	assert.Contains(t, rec.Body.String(), "VK101,CTEK,5")

	rec = h.do(t, http.MethodGet, "/dashboard/export/sales?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypeXLSX, rec.Header().Get("Content-Type"))

	rec = h.do(t, http.MethodGet, "/dashboard/export/orders", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnapshotsWithoutMongo(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/dashboard/snapshots", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/dashboard/inventory/refresh", nil)

	rec := h.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `partsdesk_list_requests_total{outcome="ok"} 1`)
}
