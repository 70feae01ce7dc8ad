package leads

import (
	"strings"
	"time"
)

// Canonical column headers of the daily lead log.
const (
	ColName        = "Name"
	ColCompany     = "Company"
	ColTitle       = "Title"
	ColSource      = "Source"
	ColActionTaken = "Action Taken"
	ColNextStep    = "Next Step"
	ColStatusStage = "Status Stage"
	ColSalesRep    = "Sales Rep"
	ColNotes       = "Notes"
	ColDueDate     = "Due Date"
	ColActionDate  = "Action Date"
)

// DefaultSheet is the workbook sheet that holds the lead log.
const DefaultSheet = "Daily Lead Log"

// Pipeline stages observed in lead logs. The set is open; other values are kept as-is.
const (
	StageNew          = "New"
	StageContacted    = "Contacted"
	StageEngaged      = "Engaged"
	StageProposalSent = "Proposal Sent"
	StageNegotiation  = "Negotiation"
	StageClosedWon    = "Closed Won"
)

// Lead is one row of the lead log.
type Lead struct {
	Name        string            `json:"name,omitempty"`
	Company     string            `json:"company,omitempty"`
	Title       string            `json:"title,omitempty"`
	Source      string            `json:"source,omitempty"`
	SalesRep    string            `json:"sales_rep,omitempty"`
	StatusStage string            `json:"status_stage,omitempty"`
	ActionTaken string            `json:"action_taken,omitempty"`
	ActionDate  string            `json:"action_date,omitempty"`
	NextStep    string            `json:"next_step,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	DueDate     string            `json:"due_date,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// ActionTime parses ActionDate. ok is false for empty or unparseable values.
func (l Lead) ActionTime() (time.Time, bool) {
	return ParseDate(l.ActionDate)
}

// Field returns a value by column header, falling back to Extra.
func (l Lead) Field(col string) string {
	switch canonicalColumn(col) {
	case ColName:
		return l.Name
	case ColCompany:
		return l.Company
	case ColTitle:
		return l.Title
	case ColSource:
		return l.Source
	case ColActionTaken:
		return l.ActionTaken
	case ColNextStep:
		return l.NextStep
	case ColStatusStage:
		return l.StatusStage
	case ColSalesRep:
		return l.SalesRep
	case ColNotes:
		return l.Notes
	case ColDueDate:
		return l.DueDate
	case ColActionDate:
		return l.ActionDate
	}
	for k, v := range l.Extra {
		if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(col)) {
			return v
		}
	}
	return ""
}

func (l *Lead) set(col, val string) {
	switch canonicalColumn(col) {
	case ColName:
		l.Name = val
	case ColCompany:
		l.Company = val
	case ColTitle:
		l.Title = val
	case ColSource:
		l.Source = val
	case ColActionTaken:
		l.ActionTaken = val
	case ColNextStep:
		l.NextStep = val
	case ColStatusStage:
		l.StatusStage = val
	case ColSalesRep:
		l.SalesRep = val
	case ColNotes:
		l.Notes = val
	case ColDueDate:
		l.DueDate = val
	case ColActionDate:
		l.ActionDate = val
	default:
		if val == "" {
			return
		}
		if l.Extra == nil {
			l.Extra = map[string]string{}
		}
		l.Extra[col] = val
	}
}

var canonicalColumns = []string{
	ColName, ColCompany, ColTitle, ColSource, ColActionTaken, ColNextStep,
	ColStatusStage, ColSalesRep, ColNotes, ColDueDate, ColActionDate,
}

// canonicalColumn maps a header to its canonical spelling, or returns it trimmed.
func canonicalColumn(h string) string {
	h = strings.TrimSpace(h)
	for _, c := range canonicalColumns {
		if strings.EqualFold(h, c) {
			return c
		}
	}
	return h
}

// Table is an immutable, ordered set of leads loaded from one sheet.
type Table struct {
	Source  string   `json:"source"`
	Sheet   string   `json:"sheet"`
	Columns []string `json:"columns"`
	Rows    []Lead   `json:"rows"`
	Skipped int      `json:"skipped,omitempty"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Reps lists distinct, non-empty sales reps in first-seen order.
func (t *Table) Reps() []string {
	if t == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, r := range t.Rows {
		if r.SalesRep == "" || seen[r.SalesRep] {
			continue
		}
		seen[r.SalesRep] = true
		out = append(out, r.SalesRep)
	}
	return out
}

// ForRep returns the rows owned by rep, in table order.
func (t *Table) ForRep(rep string) []Lead {
	if t == nil {
		return nil
	}
	var out []Lead
	for _, r := range t.Rows {
		if r.SalesRep == rep {
			out = append(out, r)
		}
	}
	return out
}

// Head returns at most n leading rows.
func (t *Table) Head(n int) []Lead {
	if t == nil {
		return nil
	}
	if n <= 0 || n >= len(t.Rows) {
		return t.Rows
	}
	return t.Rows[:n]
}
