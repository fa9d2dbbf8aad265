package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mamadbah2/partsdesk/internal/domain/models"
	"github.com/mamadbah2/partsdesk/internal/service/inventory"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Search  string
	Brand   string
	SortBy  string
	Order   string
	Page    int
	PerPage int
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inventory items",
		Example: `  stockctl list --brand CTEK --sort quantity --order desc
  stockctl list --search vk1 --page 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "search text")
	cmd.Flags().StringVar(&opts.Brand, "brand", "", "only show this brand")
	cmd.Flags().StringVar(&opts.SortBy, "sort", models.SortByStockCode, "sort field (stock_code|brand|quantity|price|price_with_vat)")
	cmd.Flags().StringVar(&opts.Order, "order", string(models.SortAsc), "sort order (asc|desc)")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PerPage, "per-page", models.DefaultPerPage, "items per page")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	if !models.IsSortable(opts.SortBy) {
		return fmt.Errorf("invalid sort field %q", opts.SortBy)
	}
	order := models.SortOrder(strings.ToLower(opts.Order))
	if order != models.SortAsc && order != models.SortDesc {
		return fmt.Errorf("invalid sort order %q: must be asc or desc", opts.Order)
	}
	if opts.Page < 1 {
		return fmt.Errorf("page must be at least 1")
	}

	s, err := opts.newSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}

	filters := models.DefaultFilterState().
		WithSearch(opts.Search).
		WithBrand(opts.Brand).
		WithPerPage(opts.PerPage)
	filters.SortBy = opts.SortBy
	filters.SortOrder = order
	filters.Page = opts.Page

	view, err := s.store.List(cmd.Context(), filters)
	if err != nil {
		return err
	}
	return s.out.view(view)
}

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	StockCode string
	Quantity  int
	Price     string
	Brand     string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a new item",
		Example: `  stockctl add --code VK101 --quantity 5 --price 20.00 --brand CTEK`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.StockCode, "code", "", "stock code (assigned by the backend when empty)")
	cmd.Flags().IntVar(&opts.Quantity, "quantity", 0, "initial quantity (1-100)")
	cmd.Flags().StringVar(&opts.Price, "price", "", "unit price excluding VAT")
	cmd.Flags().StringVar(&opts.Brand, "brand", "", "brand name")

	return cmd
}

func runAdd(cmd *cobra.Command, opts *AddOptions) error {
	price := decimal.Zero
	if opts.Price != "" {
		p, err := decimal.NewFromString(opts.Price)
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", opts.Price, err)
		}
		price = p
	}

	s, err := opts.newSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}

	item := models.NewItem{
		StockCode: opts.StockCode,
		Quantity:  opts.Quantity,
		Price:     price,
		Brand:     opts.Brand,
	}.Normalize()

	// Narrow the relist to the new item so it is on the loaded page.
	if item.StockCode != "" {
		if _, err := s.store.List(cmd.Context(), models.DefaultFilterState().WithSearch(item.StockCode)); err != nil {
			return err
		}
	}

	if err := s.store.Create(cmd.Context(), item); err != nil {
		if fields := models.FieldErrors(err); len(fields) > 0 {
			for _, field := range sortedKeys(fields) {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, fields[field])
			}
		}
		return err
	}
	if item.StockCode == "" {
		return s.out.view(s.store.View())
	}
	return s.out.item(s.store.View(), item.StockCode)
}

// NewSellCommand creates the sell command.
func NewSellCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "sell <stock-code> <quantity>",
		Short:   "Record a sale",
		Example: `  stockctl sell VK101 3`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			return runOnItem(cmd, rootOpts, args[0], func(ctx context.Context, store *inventory.Store, code string) error {
				return store.Sell(ctx, code, qty)
			})
		},
	}
}

// NewRestockCommand creates the restock command.
func NewRestockCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "restock <stock-code> <quantity>",
		Short:   "Add stock to an item, up to 100 units",
		Example: `  stockctl restock VK101 10`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			return runOnItem(cmd, rootOpts, args[0], func(ctx context.Context, store *inventory.Store, code string) error {
				return store.Restock(ctx, code, qty)
			})
		},
	}
}

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Price    string
	Brand    string
	Quantity int
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "update <stock-code>",
		Short:   "Change the price, brand or quantity of an item",
		Example: `  stockctl update VK101 --price 22.50 --brand Garmin`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := models.ItemPatch{}
			if cmd.Flags().Changed("price") {
				p, err := decimal.NewFromString(opts.Price)
				if err != nil {
					return fmt.Errorf("invalid price %q: %w", opts.Price, err)
				}
				patch.Price = &p
			}
			if cmd.Flags().Changed("brand") {
				brand := opts.Brand
				patch.Brand = &brand
			}
			if cmd.Flags().Changed("quantity") {
				qty := opts.Quantity
				patch.Quantity = &qty
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update: pass --price, --brand or --quantity")
			}

			return runOnItem(cmd, opts.RootOptions, args[0], func(ctx context.Context, store *inventory.Store, code string) error {
				return store.Update(ctx, code, patch)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Price, "price", "", "new unit price")
	cmd.Flags().StringVar(&opts.Brand, "brand", "", "new brand")
	cmd.Flags().IntVar(&opts.Quantity, "quantity", 0, "new quantity (0-100)")

	return cmd
}

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Yes bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "delete <stock-code>",
		Short:   "Delete an item",
		Example: `  stockctl delete VK101 --yes`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirmer := inventory.ConfirmFunc(func(_ context.Context, prompt string) bool {
				if opts.Yes {
					return true
				}
				return promptYes(cmd.InOrStdin(), cmd.ErrOrStderr(), prompt)
			})

			code := normalizeCode(args[0])
			s, err := opts.newSession(cmd, sessionOptions{confirmer: confirmer})
			if err != nil {
				return err
			}
			if err := s.store.Delete(cmd.Context(), code); err != nil {
				return err
			}
			if s.out.isJSON() {
				return s.out.json(map[string]string{"stock_code": code, "status": "deleted"})
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

// runOnItem loads the page holding code, so local stock checks apply, then
// runs the mutation and prints the refreshed record.
func runOnItem(cmd *cobra.Command, opts *RootOptions, rawCode string, mutate func(context.Context, *inventory.Store, string) error) error {
	code := normalizeCode(rawCode)
	s, err := opts.newSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if _, err := s.store.List(ctx, models.DefaultFilterState().WithSearch(code)); err != nil {
		return err
	}
	if err := mutate(ctx, s.store, code); err != nil {
		return err
	}
	return s.out.item(s.store.View(), code)
}

func parseQuantity(raw string) (int, error) {
	qty, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", raw)
	}
	return qty, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func promptYes(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
