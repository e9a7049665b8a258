package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/funnel"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch leads and customers over a date window and report funnel KPIs",
	Long: `Runs the acquisition pipeline end-to-end for one date window:

  1. Fetch the deal stage catalog and resolve the customer stage set
     (explicit --stages, or auto-detected from stage labels).
  2. Page through contact search results for the window.
  3. Page through deal search results for the window and stage set.
  4. Classify lead statuses, normalize rows, and aggregate KPIs.

Auto-detected stages are a heuristic. Confirm them with the stages command
and pass --stages explicitly for authoritative customer counts.

Examples:
  # Last 30 days, auto-detected customer stages
  funnel-cli fetch

  # Explicit window and confirmed stage ids
  funnel-cli fetch --from 2024-01-01 --to 2024-01-31 --stages 12345,67890

  # Machine-readable output for the dashboard
  funnel-cli fetch --json`,
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.String("from", "", "window start date (YYYY-MM-DD, default 29 days ago)")
	f.String("to", "", "window end date (YYYY-MM-DD, default today)")
	f.String("stages", "", "comma-separated confirmed customer stage ids")
	f.Bool("json", false, "emit tables and KPIs as JSON")

	rootCmd.AddCommand(fetchCmd)
}

// fetchOutput is the JSON envelope handed to the dashboard layer.
type fetchOutput struct {
	Window       map[string]string   `json:"window"`
	Contacts     []funnel.ContactRow `json:"contacts"`
	Deals        []funnel.DealRow    `json:"deals"`
	KPIs         *funnel.KPIs        `json:"kpis"`
	ContactStats funnel.FetchStats   `json:"contact_stats"`
	DealStats    funnel.FetchStats   `json:"deal_stats"`
}

func runFetch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := newFunnelService()
	if err != nil {
		return err
	}

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	stagesFlag, _ := cmd.Flags().GetString("stages")
	asJSON, _ := cmd.Flags().GetBool("json")

	win := defaultWindow(svc, from, to)
	log := zap.L().With(zap.String("command", "fetch"))

	stageIDs := splitStageIDs(stagesFlag)
	if len(stageIDs) == 0 {
		catalog := svc.FetchStageCatalog(ctx)
		detected := funnel.DetectCustomerStages(catalog)
		stageIDs = funnel.StageIDs(detected)
		log.Info("auto-detected customer stages, confirm via the stages command",
			zap.Int("detected", len(detected)),
		)
	}

	contacts, contactStats := svc.FetchContacts(ctx, win)
	logFetchOutcome(log, "contacts", contactStats)

	deals, dealStats := svc.FetchDeals(ctx, win, stageIDs)
	logFetchOutcome(log, "deals", dealStats)

	kpis := funnel.ComputeKPIs(contacts, deals)

	if asJSON {
		out := fetchOutput{
			Window:       map[string]string{"from": win.From, "to": win.To},
			Contacts:     contacts,
			Deals:        deals,
			KPIs:         kpis,
			ContactStats: contactStats,
			DealStats:    dealStats,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printReport(os.Stdout, win, kpis, contactStats, dealStats)
	return nil
}

// defaultWindow fills missing dates: end defaults to today, start to 29 days
// earlier, both in the configured zone.
func defaultWindow(svc *funnel.Service, from, to string) funnel.Window {
	loc := svc.Location()
	now := time.Now().In(loc)
	if to == "" {
		to = now.Format(funnel.DateLayout)
	}
	if from == "" {
		from = now.AddDate(0, 0, -29).Format(funnel.DateLayout)
	}
	return funnel.Window{From: from, To: to, Loc: loc}
}

func splitStageIDs(flag string) []string {
	var ids []string
	for _, part := range strings.Split(flag, ",") {
		if p := strings.TrimSpace(part); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func logFetchOutcome(log *zap.Logger, object string, stats funnel.FetchStats) {
	if stats.Outcome == funnel.OutcomeOK {
		return
	}
	log.Warn("fetch degraded, treating as no data",
		zap.String("object", object),
		zap.String("outcome", string(stats.Outcome)),
		zap.String("run_id", stats.RunID),
	)
}

func printReport(w io.Writer, win funnel.Window, kpis *funnel.KPIs, contactStats, dealStats funnel.FetchStats) {
	fmt.Fprintf(w, "--- Funnel Report %s to %s ---\n", win.From, win.To)
	fmt.Fprintf(w, "Requests: %d contact, %d deal\n\n", contactStats.Requests, dealStats.Requests)

	if kpis == nil {
		fmt.Fprintln(w, "No leads found in this window.")
		return
	}

	fmt.Fprintf(w, "Total leads:       %6d\n", kpis.TotalLeads)
	fmt.Fprintf(w, "Deal-stage leads:  %6d (hot+warm+cold+customers)\n", kpis.DealLeads)
	fmt.Fprintf(w, "Customers:         %6d\n", kpis.Customers)
	fmt.Fprintf(w, "Total revenue:     %10.2f\n", kpis.TotalRevenue)
	fmt.Fprintf(w, "Avg per customer:  %10.2f\n\n", kpis.AvgRevenuePerCustomer)

	fmt.Fprintln(w, "Leads by status:")
	for _, st := range funnel.CanonicalStatuses {
		fmt.Fprintf(w, "  %-16s %6d\n", st, kpis.StatusCounts[st])
	}

	fmt.Fprintf(w, "\nLead -> customer:  %5.1f%%\n", kpis.LeadToCustomerPct)
	fmt.Fprintf(w, "Lead -> deal:      %5.1f%%\n", kpis.LeadToDealPct)
	fmt.Fprintf(w, "Deal -> customer:  %5.1f%%\n", kpis.DealToCustomerPct)
}
