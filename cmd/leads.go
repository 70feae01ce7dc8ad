package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/leadpilot-cli/internal/leads"
	"github.com/KaramelBytes/leadpilot-cli/internal/metrics"
	"github.com/KaramelBytes/leadpilot-cli/internal/report"
	"github.com/KaramelBytes/leadpilot-cli/internal/utils"
)

// rangeFlags selects a reporting window: explicit dates or the last N days.
type rangeFlags struct {
	From string
	To   string
	Days int
}

func addRangeFlags(c *cobra.Command) *rangeFlags {
	r := &rangeFlags{}
	c.Flags().StringVar(&r.From, "from", "", "window start date (YYYY-MM-DD, inclusive)")
	c.Flags().StringVar(&r.To, "to", "", "window end date (YYYY-MM-DD, inclusive)")
	c.Flags().IntVar(&r.Days, "days", 0, "window of the last N days ending today")
	return r
}

// resolve returns the selected window; nil means all time unless
// defaultDays is positive.
func (r *rangeFlags) resolve(now time.Time, defaultDays int) (*metrics.DateRange, error) {
	if r.Days > 0 && (r.From != "" || r.To != "") {
		return nil, fmt.Errorf("use either --days or --from/--to, not both")
	}
	if r.Days > 0 {
		rng := metrics.LastDays(now, r.Days)
		return &rng, nil
	}
	rng, err := metrics.ParseRange(r.From, r.To)
	if err != nil {
		return nil, err
	}
	if rng == nil && defaultDays > 0 {
		last := metrics.LastDays(now, defaultDays)
		return &last, nil
	}
	return rng, nil
}

var sheetsCmd = &cobra.Command{
	Use:     "sheets",
	Short:   "List the worksheets in a lead workbook",
	Example: `  leadpilot sheets -f leads.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if leadFile == "" {
			return fmt.Errorf("--file is required")
		}
		sheets, err := leads.Sheets(leadFile)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range sheets {
			fmt.Fprintln(out, s)
		}
		return nil
	},
}

var repsJSON bool

type repRow struct {
	Rep          string `json:"rep"`
	Leads        int    `json:"leads"`
	LastActivity string `json:"last_activity,omitempty"`
}

var repsCmd = &cobra.Command{
	Use:     "reps",
	Short:   "List sales reps with lead counts",
	Example: `  leadpilot reps -f leads.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}
		rows := make([]repRow, 0)
		for _, rep := range t.Reps() {
			r := repRow{Rep: rep, Leads: len(t.ForRep(rep))}
			if last, ok := metrics.LastActivity(t, rep); ok {
				r.LastActivity = leads.FormatDate(last)
			}
			rows = append(rows, r)
		}
		out := cmd.OutOrStdout()
		if repsJSON {
			b, err := utils.PrettyJSON(rows)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if len(rows) == 0 {
			fmt.Fprintln(out, "No sales reps found")
			return nil
		}
		for _, r := range rows {
			last := "-"
			if r.LastActivity != "" {
				last = r.LastActivity
			}
			fmt.Fprintf(out, "%-24s %6s leads   last activity: %s\n", r.Rep, humanize.Comma(int64(r.Leads)), last)
		}
		return nil
	},
}

var (
	dashRep   string
	dashJSON  bool
	dashPlain bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show a rep's overall performance cards",
	Example: `  leadpilot dashboard -f leads.xlsx --rep "Asha"
  leadpilot dashboard -f leads.csv --rep "Asha" --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}
		rep, err := requireRep(t, dashRep)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		o, ok := metrics.ComputeRepOverview(t, rep)
		if !ok {
			fmt.Fprintf(out, "No leads found for %s\n", rep)
			return nil
		}
		last, hasLast := metrics.LastActivity(t, rep)
		if dashJSON {
			doc := map[string]any{"overview": o}
			if hasLast {
				doc["last_activity"] = leads.FormatDate(last)
			}
			b, err := utils.PrettyJSON(doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if dashPlain {
			fmt.Fprint(out, report.RenderOverview(o))
			return nil
		}
		var lastPtr *time.Time
		if hasLast {
			lastPtr = &last
		}
		fmt.Fprintln(out, report.Dashboard(o, lastPtr, time.Now()))
		return nil
	},
}

var (
	snapRep   string
	snapJSON  bool
	snapShare bool
	snapPhone string
	snapRange *rangeFlags
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Compute a rep's activity metrics and print the performance report",
	Example: `  leadpilot snapshot -f leads.xlsx --rep "Asha"
  leadpilot snapshot -f leads.xlsx --rep "Asha" --from 2024-01-01 --to 2024-01-31
  leadpilot snapshot -f leads.xlsx --rep "Asha" --days 7 --share`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}
		rep, err := requireRep(t, snapRep)
		if err != nil {
			return err
		}
		rng, err := snapRange.resolve(time.Now(), 0)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		snap, ok := metrics.ComputeSnapshot(t, rep, rng)
		if !ok {
			msg := report.NoActivity(rep, rng)
			if snapJSON {
				b, err := utils.PrettyJSON(map[string]any{"no_activity": true, "message": msg})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
				return nil
			}
			fmt.Fprintln(out, msg)
			return nil
		}
		if snapJSON {
			b, err := utils.PrettyJSON(snap)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		text := report.Render(snap)
		fmt.Fprint(out, text)
		if snapShare {
			return printShareLink(cmd, snapPhone, text)
		}
		return nil
	},
}

// printShareLink prints a wa.me link for text, using phone or manager_phone.
func printShareLink(cmd *cobra.Command, phone, text string) error {
	if phone == "" {
		phone = currentConfig().ManagerPhone
	}
	if phone == "" {
		return fmt.Errorf("--share needs --phone or config 'manager_phone'")
	}
	link, err := report.ShareLink(phone, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n📤 Share with manager: %s\n", link)
	return nil
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
	rootCmd.AddCommand(repsCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(snapshotCmd)

	repsCmd.Flags().BoolVar(&repsJSON, "json", false, "emit reps as JSON")

	dashboardCmd.Flags().StringVar(&dashRep, "rep", "", "sales rep name")
	dashboardCmd.Flags().BoolVar(&dashJSON, "json", false, "emit the overview as JSON")
	dashboardCmd.Flags().BoolVar(&dashPlain, "plain", false, "plain text instead of styled cards")

	snapshotCmd.Flags().StringVar(&snapRep, "rep", "", "sales rep name")
	snapshotCmd.Flags().BoolVar(&snapJSON, "json", false, "emit the snapshot as JSON")
	snapshotCmd.Flags().BoolVar(&snapShare, "share", false, "print a WhatsApp share link for the report")
	snapshotCmd.Flags().StringVar(&snapPhone, "phone", "", "share target phone (default from config manager_phone)")
	snapRange = addRangeFlags(snapshotCmd)
}
