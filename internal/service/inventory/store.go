package inventory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/partsdesk/internal/domain/models"
	"github.com/mamadbah2/partsdesk/internal/service/analytics"
	"github.com/mamadbah2/partsdesk/internal/service/mutations"
	"github.com/mamadbah2/partsdesk/internal/service/notify"
	client "github.com/mamadbah2/partsdesk/pkg/clients/inventory"
)

const (
	deletePrompt = "Are you sure you want to delete this item?"
	createLane   = "__create__"
)

// Confirmer approves destructive actions before they are dispatched.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

type confirmedKey struct{}

// WithConfirmation marks ctx as carrying the caller's approval.
func WithConfirmation(ctx context.Context) context.Context {
	return context.WithValue(ctx, confirmedKey{}, true)
}

// ContextConfirmer approves only requests whose context went through
// WithConfirmation.
func ContextConfirmer() Confirmer {
	return ConfirmFunc(func(ctx context.Context, _ string) bool {
		ok, _ := ctx.Value(confirmedKey{}).(bool)
		return ok
	})
}

// Recorder observes store outcomes, typically for metrics.
type Recorder interface {
	ObserveMutation(op string, err error)
	ObserveList(err error)
}

// Options configures a Store. Nil fields fall back to no-op implementations,
// except Confirmer which defaults to refusing every deletion.
type Options struct {
	Notifier          notify.Notifier
	Confirmer         Confirmer
	Recorder          Recorder
	Logger            *zap.Logger
	PerPage           int
	LowStockThreshold int
}

// View is a read-only copy of the store state.
type View struct {
	Items      []models.ItemRecord  `json:"items"`
	Pagination models.Pagination    `json:"pagination"`
	Stats      models.StatsSnapshot `json:"statistics"`
	Filters    models.FilterState   `json:"filters"`
	Brands     []string             `json:"available_brands"`
	Loaded     bool                 `json:"loaded"`
	LoadedAt   time.Time            `json:"loaded_at"`
}

// Store is the single view-model of the inventory page. The backend stays
// the source of truth: every successful mutation is followed by a relist.
type Store struct {
	client    client.Client
	queue     *mutations.Queue
	notifier  notify.Notifier
	confirmer Confirmer
	recorder  Recorder
	logger    *zap.Logger
	threshold int
	now       func() time.Time

	mu         sync.RWMutex
	view       View
	generation uint64
}

// NewStore wires a store over the backend client and mutation queue.
func NewStore(c client.Client, queue *mutations.Queue, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogNotifier(opts.Logger)
	}
	if opts.Confirmer == nil {
		opts.Confirmer = ConfirmFunc(func(context.Context, string) bool { return false })
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = analytics.DefaultLowStockThreshold
	}
	if queue == nil {
		queue = mutations.NewQueue(opts.Logger.Named("queue"), nil)
	}

	filters := models.DefaultFilterState()
	if opts.PerPage > 0 {
		filters.PerPage = opts.PerPage
	}

	return &Store{
		client:    c,
		queue:     queue,
		notifier:  opts.Notifier,
		confirmer: opts.Confirmer,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
		threshold: opts.LowStockThreshold,
		now:       time.Now,
		view: View{
			Items:      []models.ItemRecord{},
			Brands:     []string{},
			Filters:    filters,
			Pagination: models.Pagination{CurrentPage: 1, TotalPages: 1, PerPage: filters.PerPage},
		},
	}
}

// View returns a copy of the current state.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyView()
}

func (s *Store) copyView() View {
	v := s.view
	v.Items = append([]models.ItemRecord(nil), s.view.Items...)
	v.Brands = append([]string(nil), s.view.Brands...)
	return v
}

// Analytics computes the item analytics of the loaded page.
func (s *Store) Analytics() analytics.Summary {
	return analytics.Summarize(s.View().Items, s.threshold)
}

// Item returns the cached record for stockCode, if it is on the loaded page.
func (s *Store) Item(stockCode string) (models.ItemRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.view.Items {
		if item.StockCode == stockCode {
			return item, true
		}
	}
	return models.ItemRecord{}, false
}

// List loads the page matching filters. The criteria become current only
// together with their page: a failed request leaves the state untouched and
// a response that arrives after a newer list request was issued is discarded.
func (s *Store) List(ctx context.Context, filters models.FilterState) (View, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	page, err := s.client.ListItems(ctx, filters)
	if s.recorder != nil {
		s.recorder.ObserveList(err)
	}
	if err != nil {
		if s.superseded(gen) {
			s.logger.Debug("superseded item request failed", zap.Uint64("generation", gen), zap.Error(err))
			return s.View(), err
		}
		s.logger.Warn("failed to load items", zap.Error(err), zap.Any("filters", filters))
		s.notifier.Error(models.UserMessage(err, "Failed to load items"))
		return s.View(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.Debug("discarding stale item page", zap.Uint64("generation", gen), zap.Uint64("latest", s.generation))
		return s.copyView(), nil
	}

	pagination := page.Pagination
	if pagination.CurrentPage < 1 {
		pagination.CurrentPage = filters.Page
	}
	if pagination.TotalPages < 1 {
		pagination.TotalPages = 1
	}
	if pagination.PerPage < 1 {
		pagination.PerPage = filters.PerPage
	}

	s.view.Items = page.Items
	s.view.Pagination = pagination
	s.view.Stats = page.Statistics
	s.view.Brands = analytics.AvailableBrands(page.Items)
	s.view.Filters = filters
	s.view.Filters.Page = pagination.CurrentPage
	s.view.Loaded = true
	s.view.LoadedAt = s.now()

	return s.copyView(), nil
}

func (s *Store) superseded(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gen != s.generation
}

// Threshold is the low stock threshold used by Analytics.
func (s *Store) Threshold() int {
	return s.threshold
}

// Refresh reloads the page for the current criteria.
func (s *Store) Refresh(ctx context.Context) (View, error) {
	return s.List(ctx, s.View().Filters)
}

// SetSearch changes the search text and reloads from page 1.
func (s *Store) SetSearch(ctx context.Context, search string) (View, error) {
	return s.List(ctx, s.View().Filters.WithSearch(search))
}

// SetBrand changes the brand filter and reloads from page 1.
func (s *Store) SetBrand(ctx context.Context, brand string) (View, error) {
	return s.List(ctx, s.View().Filters.WithBrand(brand))
}

// SetPerPage changes the page size and reloads from page 1.
func (s *Store) SetPerPage(ctx context.Context, perPage int) (View, error) {
	return s.List(ctx, s.View().Filters.WithPerPage(perPage))
}

// ToggleSort applies a sort header click and reloads.
func (s *Store) ToggleSort(ctx context.Context, field string) (View, error) {
	next, err := s.View().Filters.ToggleSort(field)
	if err != nil {
		s.notifier.Error(models.UserMessage(err, "Invalid sort field"))
		return s.View(), err
	}
	return s.List(ctx, next)
}

// GoToPage moves to page n, clamped into the known page range, and reloads.
func (s *Store) GoToPage(ctx context.Context, n int) (View, error) {
	v := s.View()
	return s.List(ctx, v.Filters.WithPage(n, v.Pagination.TotalPages))
}

// Create validates and submits a new item.
func (s *Store) Create(ctx context.Context, item models.NewItem) error {
	const op = "create"
	item = item.Normalize()
	if err := item.Validate(); err != nil {
		return s.reject(op, err, "Please fix the form errors")
	}

	key := item.StockCode
	if key == "" {
		key = createLane
	}

	return s.mutate(ctx, op, key, "Failed to add item", func(ctx context.Context) (string, error) {
		message, err := s.client.CreateItem(ctx, item)
		if err != nil {
			return "", err
		}
		if message == "" {
			message = "Item added successfully"
		}
		return message, nil
	})
}

// Update sends the fields of patch that differ from the cached record.
// A patch without changes is a no-op.
func (s *Store) Update(ctx context.Context, stockCode string, patch models.ItemPatch) error {
	const op = "update"
	stockCode = normalizeCode(stockCode)
	if err := patch.Validate(); err != nil {
		return s.reject(op, err, "Invalid item update")
	}

	return s.mutate(ctx, op, stockCode, updateFallback(patch), func(ctx context.Context) (string, error) {
		changes := patch
		if current, ok := s.Item(stockCode); ok {
			changes = patch.Diff(current)
		}
		if changes.IsEmpty() {
			s.logger.Debug("update without changes skipped", zap.String("stock_code", stockCode))
			return "", nil
		}
		if err := s.client.UpdateItem(ctx, stockCode, changes); err != nil {
			return "", err
		}
		return updateSuccess(changes), nil
	})
}

// Sell records a sale. Selling more than the cached quantity is refused
// locally; otherwise the backend decides.
func (s *Store) Sell(ctx context.Context, stockCode string, quantity int) error {
	const op = "sell"
	stockCode = normalizeCode(stockCode)
	if quantity <= 0 {
		return s.reject(op, models.NewValidationError(op, "Quantity must be greater than 0", map[string]string{"quantity": "must be greater than 0"}), "")
	}

	return s.mutate(ctx, op, stockCode, "Failed to sell items", func(ctx context.Context) (string, error) {
		if current, ok := s.Item(stockCode); ok && quantity > current.Quantity {
			return "", models.NewConflictError(op, models.ErrInsufficientStock,
				fmt.Sprintf("Cannot sell %d items. Only %d items available in stock", quantity, current.Quantity))
		}
		if err := s.client.SellItem(ctx, stockCode, quantity); err != nil {
			return "", err
		}
		return fmt.Sprintf("Sold %d items successfully", quantity), nil
	})
}

// Restock adds quantity units to an item on the loaded page, keeping the
// total within the stock ceiling.
func (s *Store) Restock(ctx context.Context, stockCode string, quantity int) error {
	const op = "restock"
	stockCode = normalizeCode(stockCode)
	if quantity <= 0 {
		return s.reject(op, models.NewValidationError(op, "Quantity must be greater than 0", map[string]string{"quantity": "must be greater than 0"}), "")
	}

	return s.mutate(ctx, op, stockCode, "Failed to update stock", func(ctx context.Context) (string, error) {
		current, ok := s.Item(stockCode)
		if !ok {
			return "", &models.Error{Kind: models.ErrNotFound, Op: op, Message: fmt.Sprintf("Item %s is not on the current page", stockCode)}
		}
		if !current.CanRestock() {
			return "", models.NewConflictError(op, models.ErrStockLimit, "Stock is already at the 100 items limit")
		}
		total := current.Quantity + quantity
		if total > models.MaxQuantity {
			return "", models.NewConflictError(op, models.ErrStockLimit,
				fmt.Sprintf("Cannot add %d items. Total quantity (%d) would exceed 100 items limit", quantity, total))
		}
		if err := s.client.UpdateItem(ctx, stockCode, models.ItemPatch{Quantity: &total}); err != nil {
			return "", err
		}
		return "Stock updated successfully", nil
	})
}

// Delete removes an item once the confirmer approves.
func (s *Store) Delete(ctx context.Context, stockCode string) error {
	const op = "delete"
	stockCode = normalizeCode(stockCode)
	if !s.confirmer.Confirm(ctx, deletePrompt) {
		s.logger.Info("delete not confirmed", zap.String("stock_code", stockCode))
		return &models.Error{Kind: models.ErrNotConfirmed, Op: op, Message: "Deletion was not confirmed"}
	}

	return s.mutate(ctx, op, stockCode, "Failed to delete item", func(ctx context.Context) (string, error) {
		if err := s.client.DeleteItem(ctx, stockCode); err != nil {
			return "", err
		}
		return "Item deleted successfully", nil
	})
}

// mutate runs fn in the lane of key. On success it notifies and relists
// before the lane moves on; an empty success message means nothing changed.
func (s *Store) mutate(ctx context.Context, op, key, fallback string, fn func(ctx context.Context) (string, error)) error {
	err := s.queue.Do(ctx, key, func(ctx context.Context) error {
		message, err := fn(ctx)
		if err != nil {
			return err
		}
		if message == "" {
			return nil
		}

		s.notifier.Success(message)
		s.logger.Info("mutation applied", zap.String("op", op), zap.String("stock_code", key))

		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Warn("relist after mutation failed", zap.String("op", op), zap.Error(err))
		}
		return nil
	})

	if s.recorder != nil {
		s.recorder.ObserveMutation(op, err)
	}
	if err != nil {
		s.logger.Warn("mutation rejected", zap.String("op", op), zap.String("stock_code", key), zap.Error(err))
		s.notifier.Error(models.UserMessage(err, fallback))
	}
	return err
}

// reject reports a validation failure that never reached the network.
func (s *Store) reject(op string, err error, fallback string) error {
	if s.recorder != nil {
		s.recorder.ObserveMutation(op, err)
	}
	s.notifier.Error(models.UserMessage(err, fallback))
	return err
}

// normalizeCode matches the casing Create gives new stock codes.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func updateFallback(p models.ItemPatch) string {
	switch {
	case p.Price != nil && p.Brand == nil && p.Quantity == nil:
		return "Failed to update price"
	case p.Brand != nil && p.Price == nil && p.Quantity == nil:
		return "Failed to update brand"
	case p.Quantity != nil && p.Price == nil && p.Brand == nil:
		return "Failed to update stock"
	default:
		return "Failed to update item"
	}
}

func updateSuccess(p models.ItemPatch) string {
	switch {
	case p.Price != nil && p.Brand == nil && p.Quantity == nil:
		return "Price updated successfully"
	case p.Brand != nil && p.Price == nil && p.Quantity == nil:
		return "Brand updated successfully"
	case p.Quantity != nil && p.Price == nil && p.Brand == nil:
		return "Stock updated successfully"
	default:
		return "Item updated successfully"
	}
}
