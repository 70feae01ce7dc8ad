package metrics

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/leadpilot-cli/internal/leads"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ashaTable() *leads.Table {
	return &leads.Table{Rows: []leads.Lead{
		{Name: "Priya", SalesRep: "Asha", StatusStage: "New", ActionDate: "2024-01-11"},
		{Name: "Rahul", SalesRep: "Asha", StatusStage: "Contacted", ActionTaken: "Followed up by email", ActionDate: "2024-01-12"},
		{Name: "Meera", SalesRep: "Asha", StatusStage: "Proposal Sent", ActionTaken: "Emailed deck", ActionDate: "2024-01-15"},
		{Name: "Vikram", SalesRep: "Asha", StatusStage: "Closed Won", ActionTaken: "Signed contract", ActionDate: "2023-12-01"},
		{Name: "Dana", SalesRep: "Ben", StatusStage: "New", ActionDate: "2024-01-12"},
	}}
}

func TestComputeSnapshotDateRange(t *testing.T) {
	rng := &DateRange{Start: day("2024-01-10"), End: day("2024-01-17")}
	got, ok := ComputeSnapshot(ashaTable(), "Asha", rng)
	require.True(t, ok)

	want := Snapshot{
		Rep:                   "Asha",
		Range:                 rng,
		TotalActivities:       3,
		NewLeads:              1,
		ProposalsSent:         1,
		DealsClosed:           0,
		ActivePipelineCount:   3,
		LeadToContactRate:     1,
		ContactToProposalRate: 0.5,
		WinRate:               0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestActivePipelineIgnoresDateRange(t *testing.T) {
	tbl := ashaTable()
	tbl.Rows = append(tbl.Rows, leads.Lead{Name: "Old", SalesRep: "Asha", StatusStage: "Negotiation", ActionDate: "2023-06-01"})
	tbl.Rows = append(tbl.Rows, leads.Lead{Name: "Undated", SalesRep: "Asha", StatusStage: "Engaged", ActionDate: "tbd"})

	narrow, ok := ComputeSnapshot(tbl, "Asha", &DateRange{Start: day("2024-01-15"), End: day("2024-01-15")})
	require.True(t, ok)
	wide, ok := ComputeSnapshot(tbl, "Asha", nil)
	require.True(t, ok)

	assert.Equal(t, 1, narrow.TotalActivities)
	assert.Equal(t, 6, wide.TotalActivities)
	assert.Equal(t, 5, narrow.ActivePipelineCount)
	assert.Equal(t, wide.ActivePipelineCount, narrow.ActivePipelineCount)
}

func TestComputeSnapshotNoActivity(t *testing.T) {
	_, ok := ComputeSnapshot(ashaTable(), "Nobody", nil)
	assert.False(t, ok)

	// rep exists but nothing falls inside the window
	_, ok = ComputeSnapshot(ashaTable(), "Asha", &DateRange{Start: day("2025-01-01"), End: day("2025-01-31")})
	assert.False(t, ok)

	_, ok = ComputeSnapshot(nil, "Asha", nil)
	assert.False(t, ok)
}

func TestComputeSnapshotUnparseableDatesExcluded(t *testing.T) {
	tbl := &leads.Table{Rows: []leads.Lead{
		{SalesRep: "Asha", StatusStage: "Contacted", ActionDate: ""},
		{SalesRep: "Asha", StatusStage: "Contacted", ActionDate: "next week"},
	}}
	_, ok := ComputeSnapshot(tbl, "Asha", &DateRange{Start: day("2000-01-01"), End: day("2100-01-01")})
	assert.False(t, ok)

	s, ok := ComputeSnapshot(tbl, "Asha", nil)
	require.True(t, ok)
	assert.Equal(t, 2, s.TotalActivities)
}

func TestClassification(t *testing.T) {
	cases := []struct {
		name   string
		lead   leads.Lead
		check  func(Snapshot) int
		expect int
	}{
		{"new stage with empty action", leads.Lead{StatusStage: "New"}, func(s Snapshot) int { return s.NewLeads }, 1},
		{"connect keyword", leads.Lead{ActionTaken: "Sent LinkedIn CONNECTION request"}, func(s Snapshot) int { return s.NewLeads }, 1},
		{"initial outreach", leads.Lead{ActionTaken: "initial email"}, func(s Snapshot) int { return s.NewLeads }, 1},
		{"discussion counts as call", leads.Lead{ActionTaken: "Had a discussion about pricing"}, func(s Snapshot) int { return s.CallsMade }, 1},
		{"discussion is not a proposal", leads.Lead{ActionTaken: "Had a discussion about pricing"}, func(s Snapshot) int { return s.ProposalsSent }, 0},
		{"phone keyword", leads.Lead{ActionTaken: "Phone follow-up"}, func(s Snapshot) int { return s.CallsMade }, 1},
		{"quote keyword", leads.Lead{ActionTaken: "Shared quote"}, func(s Snapshot) int { return s.ProposalsSent }, 1},
		{"proposal stage", leads.Lead{StatusStage: "Proposal Sent"}, func(s Snapshot) int { return s.ProposalsSent }, 1},
		{"closed won with cold call", leads.Lead{StatusStage: "Closed Won", ActionTaken: "cold call"}, func(s Snapshot) int { return s.DealsClosed }, 1},
		{"signed keyword", leads.Lead{StatusStage: "Negotiation", ActionTaken: "Contract signed"}, func(s Snapshot) int { return s.DealsClosed }, 1},
		{"stage match is case sensitive", leads.Lead{StatusStage: "new"}, func(s Snapshot) int { return s.NewLeads }, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			l := c.lead
			l.SalesRep = "Asha"
			s, ok := ComputeSnapshot(&leads.Table{Rows: []leads.Lead{l}}, "Asha", nil)
			require.True(t, ok)
			assert.Equal(t, c.expect, c.check(s))
		})
	}
}

func TestRatesZeroDenominators(t *testing.T) {
	// no new leads, no contacted stages, no qualified stages
	tbl := &leads.Table{Rows: []leads.Lead{
		{SalesRep: "Asha", StatusStage: "Closed Won", ActionTaken: "won deal, sent proposal"},
	}}
	s, ok := ComputeSnapshot(tbl, "Asha", nil)
	require.True(t, ok)
	assert.Equal(t, 0, s.NewLeads)
	assert.Zero(t, s.LeadToContactRate)
	assert.Zero(t, s.ContactToProposalRate)
	assert.Zero(t, s.WinRate)
	assert.Equal(t, 1, s.DealsClosed)
}

func TestRatesClamped(t *testing.T) {
	tbl := &leads.Table{}
	for i := 0; i < 4; i++ {
		tbl.Rows = append(tbl.Rows, leads.Lead{SalesRep: "Asha", StatusStage: "Contacted", ActionTaken: "closed, sent quote"})
	}
	tbl.Rows = append(tbl.Rows, leads.Lead{SalesRep: "Asha", StatusStage: "New"})
	s, ok := ComputeSnapshot(tbl, "Asha", nil)
	require.True(t, ok)
	for _, r := range []float64{s.LeadToContactRate, s.ContactToProposalRate, s.WinRate} {
		assert.GreaterOrEqual(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)
	}
	assert.Equal(t, 1.0, s.LeadToContactRate)
	assert.Equal(t, 1.0, s.WinRate)
}

func TestComputeRepOverview(t *testing.T) {
	tbl := &leads.Table{Rows: []leads.Lead{
		{SalesRep: "Asha", StatusStage: "New", ActionTaken: "Cold CALL"},
		{SalesRep: "Asha", StatusStage: "Negotiation", ActionTaken: "Sent proposal"},
		{SalesRep: "Asha", StatusStage: "Proposal Sent", ActionTaken: "sent proposal v2"},
		{SalesRep: "Asha", StatusStage: "Closed Won", ActionTaken: "Call scheduled"},
		{SalesRep: "Asha", StatusStage: "Engaged", ActionTaken: "Had a discussion"},
		{SalesRep: "Asha", StatusStage: "Closed Won", ActionTaken: "Signed"},
		{SalesRep: "Ben", StatusStage: "Closed Won"},
	}}
	o, ok := ComputeRepOverview(tbl, "Asha")
	require.True(t, ok)

	want := Overview{
		Rep:            "Asha",
		TotalLeads:     6,
		ActiveLeads:    3,
		ConversionRate: 33.3,
		CallsMade:      2,
		ProposalsSent:  1,
		MeetingsBooked: 1,
	}
	if diff := cmp.Diff(want, o); diff != "" {
		t.Fatalf("overview mismatch (-want +got):\n%s", diff)
	}

	_, ok = ComputeRepOverview(tbl, "Nobody")
	assert.False(t, ok)
}

func TestLastDays(t *testing.T) {
	now := time.Date(2024, 1, 20, 17, 45, 0, 0, time.FixedZone("IST", 5*3600+1800))
	r := LastDays(now, 7)
	assert.Equal(t, day("2024-01-13"), r.Start)
	assert.Equal(t, day("2024-01-20"), r.End)
	assert.True(t, r.Contains(day("2024-01-20")))
	assert.True(t, r.Contains(day("2024-01-13")))
	assert.False(t, r.Contains(day("2024-01-21")))
}

func TestLastActivity(t *testing.T) {
	last, ok := LastActivity(ashaTable(), "Asha")
	require.True(t, ok)
	assert.Equal(t, day("2024-01-15"), last)

	_, ok = LastActivity(ashaTable(), "Nobody")
	assert.False(t, ok)
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("", "")
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = ParseRange("2024-01-13", " 2024-01-20 ")
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-13"), r.Start)
	assert.Equal(t, day("2024-01-20"), r.End)

	for _, bad := range [][2]string{{"2024-01-13", ""}, {"", "2024-01-20"}, {"13/01/2024", "2024-01-20"}, {"2024-01-21", "2024-01-20"}} {
		_, err := ParseRange(bad[0], bad[1])
		assert.ErrorIs(t, err, ErrInvalidRange, "%v", bad)
	}
}
