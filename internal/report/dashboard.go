package report

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/KaramelBytes/leadpilot-cli/internal/metrics"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#1f77b4")).
			Padding(0, 2).
			Align(lipgloss.Center).
			Width(20)
	cardValueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1f77b4"))
	cardLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	titleStyle     = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func card(value, label string) string {
	return cardStyle.Render(cardValueStyle.Render(value) + "\n" + cardLabelStyle.Render(label))
}

// Dashboard renders the overview as a grid of metric cards. last is the most
// recent action date, if known; now anchors the relative age.
func Dashboard(o metrics.Overview, last *time.Time, now time.Time) string {
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		card(humanize.Comma(int64(o.TotalLeads)), "Total Leads"),
		card(humanize.Comma(int64(o.ActiveLeads)), "Active Leads"),
		card(fmt.Sprintf("%.1f%%", o.ConversionRate), "Conversion Rate"),
	)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		card(humanize.Comma(int64(o.CallsMade)), "Calls Made"),
		card(humanize.Comma(int64(o.ProposalsSent)), "Proposals Sent"),
		card(humanize.Comma(int64(o.MeetingsBooked)), "Meetings Booked"),
	)
	footer := "Last activity: unknown"
	if last != nil {
		footer = "Last activity: " + humanize.RelTime(*last, now, "ago", "from now")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("📈 Performance Dashboard: "+o.Rep),
		top,
		bottom,
		mutedStyle.Render(footer),
	)
}
