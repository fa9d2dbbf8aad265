package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/partsdesk/internal/service/analytics"
	"github.com/mamadbah2/partsdesk/internal/service/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Dir        string
	FileFormat string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <items|sales>",
		Short: "Download the items or sales export into a file",
		Example: `  stockctl export items
  stockctl export sales --file-format xlsx --dir reports`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(export.KindItems), string(export.KindSales)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := export.ParseKind(args[0])
			if err != nil {
				return err
			}
			format, err := export.ParseFormat(opts.FileFormat)
			if err != nil {
				return err
			}

			s, err := opts.newSession(cmd, sessionOptions{exportDir: opts.Dir})
			if err != nil {
				return err
			}
			path, err := s.exporter.Save(cmd.Context(), kind, format)
			if err != nil {
				return err
			}

			if s.out.isJSON() {
				return s.out.json(map[string]string{"path": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s export written to %s\n", kind, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", ".", "directory the file is written to")
	cmd.Flags().StringVar(&opts.FileFormat, "file-format", string(export.FormatCSV), "file format (csv|xlsx)")

	return cmd
}

// SalesOptions holds flags for the sales command.
type SalesOptions struct {
	*RootOptions
	Range string
}

// NewSalesCommand creates the sales command.
func NewSalesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SalesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "sales",
		Short:   "Show the sales overview",
		Example: `  stockctl sales --range week`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := analytics.ParseDateRange(opts.Range)
			if err != nil {
				return err
			}

			s, err := opts.newSession(cmd, sessionOptions{})
			if err != nil {
				return err
			}
			history, err := s.client.SalesHistory(cmd.Context())
			if err != nil {
				return err
			}
			return s.out.sales(analytics.SummarizeSales(*history, r, time.Now()))
		},
	}

	cmd.Flags().StringVar(&opts.Range, "range", string(analytics.RangeAll), "date range (all|week|month|year)")

	return cmd
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
