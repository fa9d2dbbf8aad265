package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/partsdesk/internal/domain/models"
	"github.com/mamadbah2/partsdesk/internal/repository/mongodb"
	"github.com/mamadbah2/partsdesk/internal/service/analytics"
	"github.com/mamadbah2/partsdesk/internal/service/export"
	"github.com/mamadbah2/partsdesk/internal/service/inventory"
	"github.com/mamadbah2/partsdesk/internal/service/notify"
)

// SalesSource loads the backend sales history.
type SalesSource interface {
	SalesHistory(ctx context.Context) (*models.SalesHistory, error)
}

// Deps groups the collaborators of DashboardHandler. Snapshots may be nil.
type Deps struct {
	Store     *inventory.Store
	Sales     SalesSource
	Exporter  *export.Service
	Feed      *notify.Feed
	Snapshots mongodb.Repository
	Logger    *zap.Logger
}

// DashboardHandler exposes the inventory view-model over HTTP.
type DashboardHandler struct {
	store     *inventory.Store
	sales     SalesSource
	exporter  *export.Service
	feed      *notify.Feed
	snapshots mongodb.Repository
	logger    *zap.Logger
	now       func() time.Time
}

// NewDashboardHandler constructs the HTTP handler adapter.
func NewDashboardHandler(deps Deps) *DashboardHandler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &DashboardHandler{
		store:     deps.Store,
		sales:     deps.Sales,
		exporter:  deps.Exporter,
		feed:      deps.Feed,
		snapshots: deps.Snapshots,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

type filtersRequest struct {
	Search  *string `json:"search"`
	Brand   *string `json:"brand"`
	PerPage *int    `json:"per_page"`
}

type createRequest struct {
	StockCode   string          `json:"stock_code"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Brand       string          `json:"brand"`
	StockType   string          `json:"stock_type"`
	Description string          `json:"description"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// Inventory returns the current view without contacting the backend.
func (h *DashboardHandler) Inventory(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.View())
}

// Refresh relists the current page.
func (h *DashboardHandler) Refresh(c *gin.Context) {
	view, err := h.store.Refresh(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to load items")
		return
	}
	c.JSON(http.StatusOK, view)
}

// SetFilters changes search, brand or page size and reloads from page 1.
func (h *DashboardHandler) SetFilters(c *gin.Context) {
	var req filtersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	next := h.store.View().Filters
	if req.Search != nil {
		next = next.WithSearch(*req.Search)
	}
	if req.Brand != nil {
		next = next.WithBrand(*req.Brand)
	}
	if req.PerPage != nil {
		next = next.WithPerPage(*req.PerPage)
	}

	view, err := h.store.List(c.Request.Context(), next)
	if err != nil {
		h.writeError(c, err, "Failed to load items")
		return
	}
	c.JSON(http.StatusOK, view)
}

// Sort applies a sort header click.
func (h *DashboardHandler) Sort(c *gin.Context) {
	view, err := h.store.ToggleSort(c.Request.Context(), c.Param("field"))
	if err != nil {
		h.writeError(c, err, "Failed to load items")
		return
	}
	c.JSON(http.StatusOK, view)
}

// Page moves to the requested page.
func (h *DashboardHandler) Page(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		h.badRequest(c, fmt.Errorf("page must be a number"))
		return
	}
	view, err := h.store.GoToPage(c.Request.Context(), n)
	if err != nil {
		h.writeError(c, err, "Failed to load items")
		return
	}
	c.JSON(http.StatusOK, view)
}

// CreateItem adds a new item.
func (h *DashboardHandler) CreateItem(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	err := h.store.Create(c.Request.Context(), models.NewItem{
		StockCode:   req.StockCode,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Brand:       req.Brand,
		StockType:   req.StockType,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(c, err, "Failed to add item")
		return
	}
	c.JSON(http.StatusCreated, h.store.View())
}

// UpdateItem applies a partial update.
func (h *DashboardHandler) UpdateItem(c *gin.Context) {
	var patch models.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.store.Update(c.Request.Context(), c.Param("code"), patch); err != nil {
		h.writeError(c, err, "Failed to update item")
		return
	}
	c.JSON(http.StatusOK, h.store.View())
}

// SellItem records a sale.
func (h *DashboardHandler) SellItem(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.store.Sell(c.Request.Context(), c.Param("code"), req.Quantity); err != nil {
		h.writeError(c, err, "Failed to sell items")
		return
	}
	c.JSON(http.StatusOK, h.store.View())
}

// RestockItem adds stock to an item.
func (h *DashboardHandler) RestockItem(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.store.Restock(c.Request.Context(), c.Param("code"), req.Quantity); err != nil {
		h.writeError(c, err, "Failed to update stock")
		return
	}
	c.JSON(http.StatusOK, h.store.View())
}

// DeleteItem removes an item; the caller confirms with ?confirm=true.
func (h *DashboardHandler) DeleteItem(c *gin.Context) {
	ctx := c.Request.Context()
	if confirmed, _ := strconv.ParseBool(c.Query("confirm")); confirmed {
		ctx = inventory.WithConfirmation(ctx)
	}
	if err := h.store.Delete(ctx, c.Param("code")); err != nil {
		h.writeError(c, err, "Failed to delete item")
		return
	}
	c.JSON(http.StatusOK, h.store.View())
}

// Analytics returns the charts and figures of the loaded page.
func (h *DashboardHandler) Analytics(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Analytics())
}

// Sales returns the sales overview for ?range=all|week|month|year.
func (h *DashboardHandler) Sales(c *gin.Context) {
	r, err := analytics.ParseDateRange(c.Query("range"))
	if err != nil {
		h.badRequest(c, err)
		return
	}

	history, err := h.sales.SalesHistory(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to load sales history")
		return
	}
	c.JSON(http.StatusOK, analytics.SummarizeSales(*history, r, h.now()))
}

// Overview loads the item page and the sales history concurrently.
func (h *DashboardHandler) Overview(c *gin.Context) {
	r, err := analytics.ParseDateRange(c.Query("range"))
	if err != nil {
		h.badRequest(c, err)
		return
	}

	var (
		view    inventory.View
		history *models.SalesHistory
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		view, err = h.store.Refresh(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = h.sales.SalesHistory(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.writeError(c, err, "Failed to load dashboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inventory": view,
		"analytics": analytics.Summarize(view.Items, h.store.Threshold()),
		"sales":     analytics.SummarizeSales(*history, r, h.now()),
	})
}

// Export streams a backend export as an attachment.
func (h *DashboardHandler) Export(c *gin.Context) {
	kind, err := export.ParseKind(c.Param("kind"))
	if err != nil {
		h.badRequest(c, err)
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.badRequest(c, err)
		return
	}

	file, err := h.exporter.Download(c.Request.Context(), kind, format)
	if err != nil {
		h.writeError(c, err, "Failed to export "+string(kind))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Notifications drains the pending toasts.
func (h *DashboardHandler) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.feed.Drain()})
}

// Snapshots lists the stored statistics history, newest first.
func (h *DashboardHandler) Snapshots(c *gin.Context) {
	if h.snapshots == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot history is not configured"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.badRequest(c, fmt.Errorf("limit must be a positive number"))
			return
		}
		limit = n
	}

	snapshots, err := h.snapshots.ListSnapshots(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed listing snapshots", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load snapshots"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}

func (h *DashboardHandler) badRequest(c *gin.Context, err error) {
	h.logger.Warn("invalid dashboard request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *DashboardHandler) writeError(c *gin.Context, err error, fallback string) {
	status := StatusFor(err)
	body := gin.H{"error": models.UserMessage(err, fallback)}
	if fields := models.FieldErrors(err); len(fields) > 0 {
		body["fields"] = fields
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("dashboard request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, body)
}

// StatusFor maps a domain error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotConfirmed):
		return http.StatusPreconditionFailed
	case errors.Is(err, models.ErrNetwork), errors.Is(err, models.ErrServer):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
