package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"catalogdesk/internal/clock"
	"catalogdesk/internal/infra"
	"catalogdesk/internal/model"
	"catalogdesk/internal/orderfeed"

	"github.com/spf13/cobra"
)

type ordersOptions struct {
	charset  string
	today    string
	variant  string
	supplier string
	relevant bool
	asJSON   bool
	policy   orderfeed.Policy
}

// orderLine is one printed order.
type orderLine struct {
	model.Order
	Overdue bool `json:"overdue"`
	Open    bool `json:"open"`
}

func newOrdersCmd() *cobra.Command {
	opts := ordersOptions{policy: orderfeed.DefaultPolicy()}
	cmd := &cobra.Command{
		Use:   "orders <file|url>",
		Short: "Parse an order feed and show which orders are overdue",
		Long: `Parses an order feed from a local file or an http(s) URL, the same way
the service does on refresh, and prints the orders with their overdue flag.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrders(cmd, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.charset, "charset", "utf-8", "feed encoding: utf-8 | windows-1252")
	f.StringVar(&opts.today, "today", "", "reference date (YYYY-MM-DD or DD.MM.YYYY), default today")
	f.StringVar(&opts.variant, "variant", string(orderfeed.VariantStandard), "relevance rule: standard | recent")
	f.StringVar(&opts.supplier, "supplier", "", "only this supplier ID")
	f.BoolVar(&opts.relevant, "relevant", false, "only orders that need a follow-up")
	f.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	f.IntVar(&opts.policy.GraceDays, "grace-days", opts.policy.GraceDays, "days added to today before comparing delivery dates")
	f.IntVar(&opts.policy.PendingDays, "pending-days", opts.policy.PendingDays, "days an undated order stays relevant")
	f.IntVar(&opts.policy.HorizonMonths, "horizon-months", opts.policy.HorizonMonths, "placement window of the recent variant")
	return cmd
}

func runOrders(cmd *cobra.Command, source string, opts ordersOptions) error {
	variant, err := orderfeed.ParseVariant(opts.variant)
	if err != nil {
		return err
	}
	today := clock.Today(clock.NewRealClock())
	if opts.today != "" {
		d, ok := orderfeed.ParseDate(opts.today)
		if !ok {
			return fmt.Errorf("invalid --today %q", opts.today)
		}
		today = d
	}

	body, err := readFeed(cmd, source)
	if err != nil {
		return err
	}
	res, err := orderfeed.Parse(bytes.NewReader(body), orderfeed.ParseOptions{Charset: opts.charset})
	if err != nil {
		return err
	}

	orders := res.Orders
	if opts.supplier != "" {
		kept := orders[:0:0]
		for _, o := range orders {
			if o.SupplierID == opts.supplier {
				kept = append(kept, o)
			}
		}
		orders = kept
	}
	if opts.relevant {
		orders = orderfeed.Relevant(orders, today, opts.policy, variant)
	}

	lines := make([]orderLine, len(orders))
	for i, o := range orders {
		lines[i] = orderLine{Order: o, Overdue: orderfeed.IsOverdue(o, today, opts.policy), Open: o.IsOpen()}
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(lines)
	}
	if err := printOrderTable(out, lines); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.ErrOrStderr(), "%d orders (%d rows dropped without placed date), reference date %s\n",
		len(lines), res.Dropped, today)
	return err
}

func readFeed(cmd *cobra.Command, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return infra.NewFeedClient(time.Minute).Fetch(cmd.Context(), source)
	}
	return os.ReadFile(source)
}

func printOrderTable(w io.Writer, lines []orderLine) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BestellNr\tLieferant\tArtNr.\tBestellt\tLT\tMenge\tOffen\tÜberfällig")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.OrderNumber, l.SupplierID, l.Reference,
			optionalDate(l.PlacedAt), optionalDate(l.PromisedDelivery),
			l.Quantity.String(), yesNo(l.Open), yesNo(l.Overdue))
	}
	return tw.Flush()
}

func optionalDate(d *model.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func yesNo(b bool) string {
	if b {
		return "ja"
	}
	return "nein"
}
