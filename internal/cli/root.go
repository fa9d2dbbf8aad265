// Package cli implements stockctl, a terminal client for the shop backend
// built on the same store as the dashboard.
package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/partsdesk/internal/config"
	"github.com/mamadbah2/partsdesk/internal/service/export"
	"github.com/mamadbah2/partsdesk/internal/service/inventory"
	"github.com/mamadbah2/partsdesk/internal/service/notify"
	client "github.com/mamadbah2/partsdesk/pkg/clients/inventory"
	"github.com/mamadbah2/partsdesk/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	APIURL  string
	Format  string // "json" | "text"
	Timeout time.Duration
	Verbose bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for stockctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stockctl",
		Short: "Manage the car parts inventory from the terminal",
		Long:  "stockctl lists, adds, sells, restocks and exports inventory items through the shop backend API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "backend API base URL (defaults to INVENTORY_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 15*time.Second, "backend request timeout")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewSellCommand(opts))
	cmd.AddCommand(NewRestockCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewSalesCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// session bundles what one command invocation needs.
type session struct {
	client   *client.APIClient
	store    *inventory.Store
	exporter *export.Service
	out      *output
}

// sessionOptions tweak the store built for a command.
type sessionOptions struct {
	confirmer inventory.Confirmer
	exportDir string
}

func (o *RootOptions) baseURL() (string, error) {
	if o.APIURL != "" {
		return o.APIURL, nil
	}
	cfg, err := config.Load("")
	if err != nil {
		return "", fmt.Errorf("load configuration: %w", err)
	}
	return cfg.InventoryAPI.BaseURL, nil
}

func (o *RootOptions) newSession(cmd *cobra.Command, so sessionOptions) (*session, error) {
	baseURL, err := o.baseURL()
	if err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if o.Verbose {
		log, err = logger.NewConsole("debug")
		if err != nil {
			return nil, err
		}
	}

	out := &output{format: o.Format, w: cmd.OutOrStdout()}
	c := client.NewClient(config.InventoryAPIConfig{BaseURL: baseURL, Timeout: o.Timeout})
	store := inventory.NewStore(c, nil, inventory.Options{
		Notifier:  newWriterNotifier(cmd.ErrOrStderr()),
		Confirmer: so.confirmer,
		Logger:    log.Named("store"),
	})

	return &session{
		client:   c,
		store:    store,
		exporter: export.NewService(c, export.Options{Dir: so.exportDir, Logger: log.Named("export")}),
		out:      out,
	}, nil
}

// writerNotifier prints notifications as terminal lines.
type writerNotifier struct {
	w io.Writer
}

func newWriterNotifier(w io.Writer) notify.Notifier {
	return &writerNotifier{w: w}
}

func (n *writerNotifier) Success(message string) {
	fmt.Fprintf(n.w, "ok: %s\n", message)
}

func (n *writerNotifier) Error(message string) {
	fmt.Fprintf(n.w, "error: %s\n", message)
}
