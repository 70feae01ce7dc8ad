// Package report renders computed metrics as fixed-structure text.
package report

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/leadpilot-cli/internal/metrics"
)

const dateFmt = "2006-01-02"

// Render formats a snapshot as the manager-facing performance report.
func Render(s metrics.Snapshot) string {
	var b strings.Builder
	b.WriteString("📊 SALES PERFORMANCE REPORT\n")
	b.WriteString(fmt.Sprintf("Rep: %s\n", s.Rep))
	b.WriteString(fmt.Sprintf("Period: %s\n\n", Period(s.Range)))

	b.WriteString("🎯 KEY METRICS:\n")
	b.WriteString(fmt.Sprintf("• Total Activities: %d\n", s.TotalActivities))
	b.WriteString(fmt.Sprintf("• New Leads Added: %d\n", s.NewLeads))
	b.WriteString(fmt.Sprintf("• Calls/Discussions: %d\n", s.CallsMade))
	b.WriteString(fmt.Sprintf("• Proposals Sent: %d\n", s.ProposalsSent))
	b.WriteString(fmt.Sprintf("• Deals Closed: %d\n", s.DealsClosed))
	b.WriteString(fmt.Sprintf("• Current Active Pipeline: %d\n\n", s.ActivePipelineCount))

	b.WriteString("📈 CONVERSION INSIGHTS:\n")
	b.WriteString(fmt.Sprintf("• Lead-to-Contact: %s\n", Percent(s.LeadToContactRate)))
	b.WriteString(fmt.Sprintf("• Contact-to-Proposal: %s\n", Percent(s.ContactToProposalRate)))
	b.WriteString(fmt.Sprintf("• Win Rate: %s\n", Percent(s.WinRate)))
	return b.String()
}

// NoActivity is the message shown when a rep has no rows in the window.
func NoActivity(rep string, rng *metrics.DateRange) string {
	if rng == nil {
		return fmt.Sprintf("No activity found for %s", rep)
	}
	return fmt.Sprintf("No activity found for %s from %s to %s", rep, rng.Start.Format(dateFmt), rng.End.Format(dateFmt))
}

// Period renders a date window, or "all time" when absent.
func Period(rng *metrics.DateRange) string {
	if rng == nil {
		return "all time"
	}
	return fmt.Sprintf("%s to %s", rng.Start.Format(dateFmt), rng.End.Format(dateFmt))
}

// Percent renders a [0,1] rate with one decimal.
func Percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

// RenderOverview formats the rep-wide overview as plain text.
func RenderOverview(o metrics.Overview) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 Performance Dashboard: %s\n", o.Rep))
	b.WriteString(fmt.Sprintf("• Total Leads: %d\n", o.TotalLeads))
	b.WriteString(fmt.Sprintf("• Active Leads: %d\n", o.ActiveLeads))
	b.WriteString(fmt.Sprintf("• Conversion Rate: %.1f%%\n", o.ConversionRate))
	b.WriteString(fmt.Sprintf("• Calls Made: %d\n", o.CallsMade))
	b.WriteString(fmt.Sprintf("• Proposals Sent: %d\n", o.ProposalsSent))
	b.WriteString(fmt.Sprintf("• Meetings Booked: %d\n", o.MeetingsBooked))
	return b.String()
}
