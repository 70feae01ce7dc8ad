// Package metrics computes per-rep performance figures from a lead table.
package metrics

import (
	"strings"
	"time"

	"github.com/KaramelBytes/leadpilot-cli/internal/leads"
)

// Keyword sets matched case-insensitively as substrings of Action Taken.
var (
	newLeadKeywords  = []string{"connection", "connect", "initial"}
	callKeywords     = []string{"call", "phone", "discussion"}
	proposalKeywords = []string{"proposal", "quote", "estimate"}
	closedKeywords   = []string{"closed", "won", "signed"}
)

// Stage sets.
var (
	activeStages = stageSet(leads.StageNew, leads.StageContacted, leads.StageEngaged,
		leads.StageProposalSent, leads.StageNegotiation)
	contactedStages = stageSet(leads.StageContacted, leads.StageEngaged,
		leads.StageProposalSent, leads.StageNegotiation)
	qualifiedStages = stageSet(leads.StageContacted, leads.StageEngaged, leads.StageProposalSent)
	// overview uses a narrower "active" set without Negotiation
	overviewActiveStages = stageSet(leads.StageNew, leads.StageContacted, leads.StageEngaged,
		leads.StageProposalSent)
)

// Exact Action Taken values counted by the overview.
const (
	ActionSentProposal  = "Sent proposal"
	ActionCallScheduled = "Call scheduled"
)

// DateRange is a closed interval [Start, End].
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// LastDays returns the window from n days before now's calendar date to that
// date, both at midnight UTC to line up with parsed lead dates.
func LastDays(now time.Time, n int) DateRange {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return DateRange{Start: end.AddDate(0, 0, -n), End: end}
}

// Snapshot is a rep's activity over an optional date window.
type Snapshot struct {
	Rep                   string     `json:"rep"`
	Range                 *DateRange `json:"range,omitempty"`
	TotalActivities       int        `json:"total_activities"`
	NewLeads              int        `json:"new_leads"`
	CallsMade             int        `json:"calls_made"`
	ProposalsSent         int        `json:"proposals_sent"`
	DealsClosed           int        `json:"deals_closed"`
	ActivePipelineCount   int        `json:"active_pipeline_count"`
	LeadToContactRate     float64    `json:"lead_to_contact_rate"`
	ContactToProposalRate float64    `json:"contact_to_proposal_rate"`
	WinRate               float64    `json:"win_rate"`
}

// ComputeSnapshot summarizes rep's rows, restricted to rng when non-nil.
// ok is false when no rows remain after filtering.
func ComputeSnapshot(t *leads.Table, rep string, rng *DateRange) (Snapshot, bool) {
	all := t.ForRep(rep)

	rows := all
	if rng != nil {
		rows = nil
		for _, l := range all {
			at, ok := l.ActionTime()
			if ok && rng.Contains(at) {
				rows = append(rows, l)
			}
		}
	}
	if len(rows) == 0 {
		return Snapshot{}, false
	}

	s := Snapshot{Rep: rep, TotalActivities: len(rows)}
	if rng != nil {
		r := *rng
		s.Range = &r
	}
	var contacted, qualified int
	for _, l := range rows {
		if containsAny(l.ActionTaken, newLeadKeywords) || l.StatusStage == leads.StageNew {
			s.NewLeads++
		}
		if containsAny(l.ActionTaken, callKeywords) {
			s.CallsMade++
		}
		if containsAny(l.ActionTaken, proposalKeywords) || l.StatusStage == leads.StageProposalSent {
			s.ProposalsSent++
		}
		if l.StatusStage == leads.StageClosedWon || containsAny(l.ActionTaken, closedKeywords) {
			s.DealsClosed++
		}
		if contactedStages[l.StatusStage] {
			contacted++
		}
		if qualifiedStages[l.StatusStage] {
			qualified++
		}
	}
	for _, l := range all {
		if activeStages[l.StatusStage] {
			s.ActivePipelineCount++
		}
	}

	s.LeadToContactRate = ratio(contacted, s.NewLeads)
	s.ContactToProposalRate = ratio(s.ProposalsSent, contacted)
	s.WinRate = ratio(s.DealsClosed, qualified)
	return s, true
}

// Overview is the rep-wide dashboard summary.
type Overview struct {
	Rep            string  `json:"rep"`
	TotalLeads     int     `json:"total_leads"`
	ActiveLeads    int     `json:"active_leads"`
	ConversionRate float64 `json:"conversion_rate"`
	CallsMade      int     `json:"calls_made"`
	ProposalsSent  int     `json:"proposals_sent"`
	MeetingsBooked int     `json:"meetings_booked"`
}

// ComputeRepOverview summarizes every row owned by rep. ok is false when rep owns none.
//
// ProposalsSent here counts exact "Sent proposal" actions only, while
// ComputeSnapshot matches proposal keywords. The two figures differ on purpose.
func ComputeRepOverview(t *leads.Table, rep string) (Overview, bool) {
	rows := t.ForRep(rep)
	if len(rows) == 0 {
		return Overview{}, false
	}
	o := Overview{Rep: rep, TotalLeads: len(rows)}
	var won int
	for _, l := range rows {
		if overviewActiveStages[l.StatusStage] {
			o.ActiveLeads++
		}
		if l.StatusStage == leads.StageClosedWon {
			won++
		}
		if containsFold(l.ActionTaken, "call") {
			o.CallsMade++
		}
		switch l.ActionTaken {
		case ActionSentProposal:
			o.ProposalsSent++
		case ActionCallScheduled:
			o.MeetingsBooked++
		}
	}
	o.ConversionRate = round1(float64(won) / float64(o.TotalLeads) * 100)
	return o, true
}

// LastActivity returns the latest parseable action date among rep's rows.
func LastActivity(t *leads.Table, rep string) (time.Time, bool) {
	var last time.Time
	found := false
	for _, l := range t.ForRep(rep) {
		if at, ok := l.ActionTime(); ok && (!found || at.After(last)) {
			last, found = at, true
		}
	}
	return last, found
}

// ratio returns num/den clamped to [0, 1], or 0 when den is not positive.
func ratio(num, den int) float64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	r := float64(num) / float64(den)
	if r > 1 {
		return 1
	}
	return r
}

func round1(f float64) float64 { return float64(int64(f*10+0.5)) / 10 }

func stageSet(stages ...string) map[string]bool {
	m := make(map[string]bool, len(stages))
	for _, s := range stages {
		m[s] = true
	}
	return m
}

func containsAny(s string, kws []string) bool {
	if s == "" {
		return false
	}
	ls := strings.ToLower(s)
	for _, kw := range kws {
		if strings.Contains(ls, kw) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
