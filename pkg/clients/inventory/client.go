package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/partsdesk/internal/config"
	"github.com/mamadbah2/partsdesk/internal/domain/models"
)

// Client exposes the shop backend operations used by the dashboard.
type Client interface {
	ListItems(ctx context.Context, filters models.FilterState) (*models.ItemPage, error)
	CreateItem(ctx context.Context, item models.NewItem) (string, error)
	UpdateItem(ctx context.Context, stockCode string, patch models.ItemPatch) error
	SellItem(ctx context.Context, stockCode string, quantity int) error
	DeleteItem(ctx context.Context, stockCode string) error
	ExportItems(ctx context.Context) ([]byte, error)
	SalesHistory(ctx context.Context) (*models.SalesHistory, error)
	ExportSales(ctx context.Context) ([]byte, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a backend client using the provided configuration values.
func NewClient(cfg config.InventoryAPIConfig) *APIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &APIClient{httpClient: restyClient}
}

// apiError represents the backend error payload.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type createItemRequest struct {
	StockCode   string  `json:"stock_code,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Brand       string  `json:"brand"`
	StockType   string  `json:"stock_type"`
	Description string  `json:"description"`
}

type sellRequest struct {
	Quantity int `json:"quantity"`
}

func (c *APIClient) ListItems(ctx context.Context, filters models.FilterState) (*models.ItemPage, error) {
	result := new(models.ItemPage)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(filters.Params()).
		SetResult(result).
		SetError(apiErr).
		Get("/items")
	if err := classify("list items", resp, err, apiErr); err != nil {
		return nil, err
	}
	if result.Items == nil {
		result.Items = []models.ItemRecord{}
	}

	return result, nil
}

// CreateItem posts a new item and returns the backend's confirmation message.
func (c *APIClient) CreateItem(ctx context.Context, item models.NewItem) (string, error) {
	payload := createItemRequest{
		StockCode:   item.StockCode,
		Quantity:    item.Quantity,
		Price:       item.Price.InexactFloat64(),
		Brand:       item.Brand,
		StockType:   item.StockType,
		Description: item.Description,
	}

	result := new(messageResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post("/items")
	if err := classify("create item", resp, err, apiErr); err != nil {
		return "", err
	}

	return result.Message, nil
}

func (c *APIClient) UpdateItem(ctx context.Context, stockCode string, patch models.ItemPatch) error {
	payload := map[string]any{}
	if patch.Price != nil {
		payload["price"] = patch.Price.InexactFloat64()
	}
	if patch.Brand != nil {
		payload["brand"] = *patch.Brand
	}
	if patch.Quantity != nil {
		payload["quantity"] = *patch.Quantity
	}

	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("code", stockCode).
		SetBody(payload).
		SetError(apiErr).
		Put("/items/{code}")
	return classify("update item", resp, err, apiErr)
}

func (c *APIClient) SellItem(ctx context.Context, stockCode string, quantity int) error {
	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("code", stockCode).
		SetBody(sellRequest{Quantity: quantity}).
		SetError(apiErr).
		Post("/items/{code}/sell")
	return classify("sell item", resp, err, apiErr)
}

func (c *APIClient) DeleteItem(ctx context.Context, stockCode string) error {
	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("code", stockCode).
		SetError(apiErr).
		Delete("/items/{code}")
	return classify("delete item", resp, err, apiErr)
}

func (c *APIClient) ExportItems(ctx context.Context) ([]byte, error) {
	return c.download(ctx, "export items", "/items/export")
}

func (c *APIClient) SalesHistory(ctx context.Context) (*models.SalesHistory, error) {
	result := new(models.SalesHistory)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr).
		Get("/sales/history")
	if err := classify("sales history", resp, err, apiErr); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *APIClient) ExportSales(ctx context.Context) ([]byte, error) {
	return c.download(ctx, "export sales", "/sales/export")
}

func (c *APIClient) download(ctx context.Context, op, path string) ([]byte, error) {
	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "text/csv, application/octet-stream").
		SetError(apiErr).
		Get(path)
	if err := classify(op, resp, err, apiErr); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// classify turns a resty outcome into the domain error taxonomy.
func classify(op string, resp *resty.Response, err error, apiErr *apiError) error {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return &models.Error{Kind: models.ErrNetwork, Op: op, Err: err}
	}

	status := resp.StatusCode()
	if status < http.StatusBadRequest {
		return nil
	}

	message := ""
	if apiErr != nil {
		message = apiErr.Error
		if message == "" {
			message = apiErr.Message
		}
	}

	out := &models.Error{
		Op:      op,
		Message: message,
		Status:  status,
		Err:     fmt.Errorf("backend returned status %d", status),
	}

	switch {
	case status == http.StatusNotFound:
		out.Kind = models.ErrNotFound
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		out.Kind = models.ErrConflict
		if strings.Contains(strings.ToLower(message), "insufficient") || strings.Contains(strings.ToLower(message), "not enough") {
			out.Reason = models.ErrInsufficientStock
		}
	default:
		out.Kind = models.ErrServer
	}

	return out
}
