package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mamadbah2/partsdesk/internal/service/analytics"
	"github.com/mamadbah2/partsdesk/internal/service/inventory"
)

type output struct {
	format string
	w      io.Writer
}

func (o *output) isJSON() bool {
	return o.format == "json"
}

func (o *output) json(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// view prints an item page with its pagination and statistics footer.
func (o *output) view(v inventory.View) error {
	if o.isJSON() {
		return o.json(v)
	}

	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STOCK CODE\tBRAND\tQTY\tPRICE\tPRICE+VAT\tSTATUS")
	for _, item := range v.Items {
		status := ""
		switch {
		case item.IsMaxStock():
			status = "max stock"
		case item.IsLowStock():
			status = "low stock"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			item.StockCode, item.Brand, item.Quantity,
			item.Price.StringFixed(2), item.PriceWithVAT.StringFixed(2), status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(o.w, "\npage %d/%d, %d items, value %s (%s incl. VAT), %d low stock\n",
		v.Pagination.CurrentPage, v.Pagination.TotalPages,
		v.Stats.TotalItems, v.Stats.TotalValue.StringFixed(2), v.Stats.TotalValueVAT.StringFixed(2),
		v.Stats.LowStockItems)
	return nil
}

// item prints a single record after a mutation.
func (o *output) item(v inventory.View, stockCode string) error {
	for _, item := range v.Items {
		if item.StockCode == stockCode {
			if o.isJSON() {
				return o.json(item)
			}
			fmt.Fprintf(o.w, "%s %s: %d in stock at %s (%s incl. VAT)\n",
				item.StockCode, item.Brand, item.Quantity,
				item.Price.StringFixed(2), item.PriceWithVAT.StringFixed(2))
			return nil
		}
	}
	if o.isJSON() {
		return o.json(map[string]string{"stock_code": stockCode, "status": "absent"})
	}
	fmt.Fprintf(o.w, "%s is no longer listed\n", stockCode)
	return nil
}

func (o *output) sales(s analytics.SalesSummary) error {
	if o.isJSON() {
		return o.json(s)
	}

	fmt.Fprintf(o.w, "range %s: %d units sold, revenue %s, average sale %s\n\n",
		s.Range, s.TotalUnits, s.TotalRevenue.StringFixed(2), s.AverageSale.StringFixed(2))

	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tBRAND\tUNITS\tREVENUE")
	for _, sale := range s.Recent {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", sale.Date, sale.Brand, sale.UnitsSold, sale.Revenue.StringFixed(2))
	}
	return tw.Flush()
}
