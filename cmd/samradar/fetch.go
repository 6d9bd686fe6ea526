package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/oakline/sam-radar/internal/fetch"
	"github.com/oakline/sam-radar/internal/models"
)

var fetchFlags struct {
	naics       []string
	psc         []string
	noticeTypes []string
	state       string
	daysBack    int
	postedFrom  string
	postedTo    string
	limit       int
	keywords    string
	bypassCache bool
	jsonOut     bool
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one fetch across the configured classification codes",
	Long: `Fetch opportunities for every enabled NAICS code, deduplicate the
merged results and print them. Omitted flags fall back to the stored code
list and the configured defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, cleanup := newService(ctx)
		defer cleanup()

		raw := map[string]any{}
		flags := cmd.Flags()
		if flags.Changed("naics") {
			raw[fetch.ParamNAICSOverride] = fetchFlags.naics
		}
		if flags.Changed("psc") {
			raw[fetch.ParamPSCOverride] = fetchFlags.psc
		}
		if flags.Changed("notice-types") {
			raw[fetch.ParamNoticeTypes] = fetchFlags.noticeTypes
		}
		if flags.Changed("state") {
			// An explicit empty state means nationwide.
			raw[fetch.ParamState] = fetchFlags.state
		}
		if flags.Changed("days-back") {
			raw[fetch.ParamDaysBack] = fetchFlags.daysBack
		}
		if flags.Changed("posted-from") {
			raw[fetch.ParamPostedFrom] = fetchFlags.postedFrom
		}
		if flags.Changed("posted-to") {
			raw[fetch.ParamPostedTo] = fetchFlags.postedTo
		}
		if flags.Changed("limit") {
			raw[fetch.ParamLimit] = fetchFlags.limit
		}
		if flags.Changed("keywords") {
			raw[fetch.ParamKeywords] = fetchFlags.keywords
		}
		if fetchFlags.bypassCache {
			raw[fetch.ParamBypassCache] = true
		}

		envelope, err := svc.Run(ctx, raw)
		if err != nil {
			return err
		}

		if fetchFlags.jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(envelope)
		}

		printEnvelope(envelope)
		if envelope.IsFailure() {
			return fmt.Errorf("fetch failed: %s", envelope.Error)
		}
		return nil
	},
}

func init() {
	f := fetchCmd.Flags()
	f.StringSliceVar(&fetchFlags.naics, "naics", nil, "NAICS codes to query (overrides the stored list)")
	f.StringSliceVar(&fetchFlags.psc, "psc", nil, "PSC codes to record (overrides the stored list)")
	f.StringSliceVar(&fetchFlags.noticeTypes, "notice-types", nil, "Notice type labels to include")
	f.StringVar(&fetchFlags.state, "state", "", "Two-letter place-of-performance state (empty for nationwide)")
	f.IntVar(&fetchFlags.daysBack, "days-back", 0, "Posted-date window ending today, in days (1-365)")
	f.StringVar(&fetchFlags.postedFrom, "posted-from", "", "Window start date (YYYY-MM-DD)")
	f.StringVar(&fetchFlags.postedTo, "posted-to", "", "Window end date (YYYY-MM-DD)")
	f.IntVar(&fetchFlags.limit, "limit", 0, "Maximum opportunities to display")
	f.StringVar(&fetchFlags.keywords, "keywords", "", "Free-text keyword filter")
	f.BoolVar(&fetchFlags.bypassCache, "bypass-cache", false, "Skip cache reads and hit the API for every code")
	f.BoolVar(&fetchFlags.jsonOut, "json", false, "Print the full response envelope as JSON")

	rootCmd.AddCommand(fetchCmd)
}

func printEnvelope(envelope fetch.Envelope) {
	opportunities := envelope.GetOpportunities()
	if envelope.HasOpportunities {
		printOpportunityTable(opportunities)
	}

	metadata := envelope.GetMetadata()
	fmt.Printf("\nStatus: %s  Opportunities: %d  Range: %v  State: %v\n",
		envelope.Status, len(opportunities), metadata["dateRange"], metadata["state"])

	for _, detail := range envelope.GetErrors() {
		if detail.Code != "" {
			fmt.Printf("  error [%s] %s: %s\n", detail.Type, detail.Code, detail.Message)
		} else {
			fmt.Printf("  error: %s\n", detail.Message)
		}
	}
	if warnings, ok := metadata["warnings"].([]string); ok {
		for _, w := range warnings {
			fmt.Printf("  warning: %s\n", w)
		}
	}
}

func printOpportunityTable(opportunities []models.Opportunity) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Notice ID", "Title", "Type", "Posted", "Deadline", "NAICS", "State", "Agency"})
	for _, opp := range opportunities {
		t.AppendRow(table.Row{
			opp.NoticeID,
			truncate(opp.Title, 48),
			opp.NoticeType,
			opp.PostedDate,
			opp.ResponseDeadline,
			opp.NAICSCode,
			opp.StateCode,
			truncate(opp.AgencyName, 32),
		})
	}
	t.Render()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
