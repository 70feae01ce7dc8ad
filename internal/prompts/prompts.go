// Package prompts builds the text instructions sent to the language model.
package prompts

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/KaramelBytes/leadpilot-cli/internal/leads"
	"github.com/KaramelBytes/leadpilot-cli/internal/metrics"
	"github.com/KaramelBytes/leadpilot-cli/internal/report"
)

// Default row caps for data embedded in prompts.
const (
	DefaultPriorityRows = 15
	DefaultCoachRows    = 8
)

// Priorities asks for today's top priorities, coaching points and quick wins
// over the first rows of the lead log (restricted to rep when set).
func Priorities(t *leads.Table, rep string, rows int) string {
	if rows <= 0 {
		rows = DefaultPriorityRows
	}
	data := t.Head(rows)
	repFilter := ""
	if rep != "" {
		data = t.ForRep(rep)
		if len(data) > rows {
			data = data[:rows]
		}
		repFilter = " for " + rep
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Analyze this sales data%s and provide SPECIFIC, ACTIONABLE advice in this EXACT structured format:\n\n", repFilter))
	b.WriteString(prioritiesLayout)
	b.WriteString("\nDATA TO ANALYZE:\n")
	b.WriteString(Table(data, columnsOf(t)))
	b.WriteString("\nFocus on SPECIFIC names, companies, and ACTIONS from the data provided.\n")
	return b.String()
}

const prioritiesLayout = `## 🎯 TODAY'S TOP 3 PRIORITIES

### 1. [Lead Name - Company]
**Action Required:** [Specific action needed]
**Urgency:** [Why this is urgent - specific reason]
**Expected Outcome:** [What success looks like]

### 2. [Lead Name - Company]
**Action Required:** [Specific action needed]
**Urgency:** [Why this is urgent - specific reason]
**Expected Outcome:** [What success looks like]

### 3. [Lead Name - Company]
**Action Required:** [Specific action needed]
**Urgency:** [Why this is urgent - specific reason]
**Expected Outcome:** [What success looks like]

## 💡 COACHING RECOMMENDATIONS

### Area 1: [Specific improvement area]
**What to do differently:** [Exactly what to change]
**Expected impact:** [How this will improve results]

### Area 2: [Specific improvement area]
**What to do differently:** [Exactly what to change]
**Expected impact:** [How this will improve results]

## 📈 QUICK WINS

### Quick Win 1: [Lead Name]
**Next Step:** [Easy action that could close quickly]
**Timeline:** [When to act]
**Confidence:** [High/Medium]

### Quick Win 2: [Lead Name]
**Next Step:** [Easy action that could close quickly]
**Timeline:** [When to act]
**Confidence:** [High/Medium]
`

// ManagerReport wraps the rendered snapshot with instructions for the
// narrative sections of a chat-friendly manager update.
func ManagerReport(s metrics.Snapshot) string {
	var b strings.Builder
	b.WriteString("Create a CONCISE WhatsApp-friendly manager report with this EXACT structure:\n\n")
	b.WriteString(report.Render(s))
	b.WriteString(`
🚀 TOP ACHIEVEMENTS:
• [List 1-2 key achievements based on actual metrics above]

💡 AREAS FOR IMPROVEMENT:
• [List 1-2 specific, actionable improvements based on metrics]

🎯 NEXT WEEK FOCUS:
• [Priority 1 - specific, measurable action]
• [Priority 2 - specific, measurable action]

Keep it brief, actionable, and WhatsApp-friendly (max 15 lines total).
Use only the metrics provided above.
`)
	return b.String()
}

var coachColumns = []string{leads.ColName, leads.ColCompany, leads.ColStatusStage, leads.ColActionTaken, leads.ColNextStep}

// Coach frames question for a sales coach with rep's current pipeline.
func Coach(t *leads.Table, rep, question string, rows int) string {
	if rows <= 0 {
		rows = DefaultCoachRows
	}
	pipeline := "No current data"
	if mine := t.ForRep(rep); len(mine) > 0 {
		if len(mine) > rows {
			mine = mine[:rows]
		}
		pipeline = Table(mine, coachColumns)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("As an expert sales coach with 15+ years experience, provide SPECIFIC, ACTIONABLE advice to %s.\n\n", rep))
	b.WriteString("CURRENT PIPELINE SNAPSHOT:\n")
	b.WriteString(pipeline)
	b.WriteString(fmt.Sprintf("\nQUESTION: %s\n\n", strings.TrimSpace(question)))
	b.WriteString(`Structure your response as:

## 🎯 IMMEDIATE ACTION PLAN

### Step 1: [Specific action]
**Why:** [Reasoning]
**How:** [Detailed instructions]

### Step 2: [Specific action]
**Why:** [Reasoning]
**How:** [Detailed instructions]

## 💡 PRO TIPS
• [Tip 1 - specific to their situation]
• [Tip 2 - common pitfall to avoid]
• [Tip 3 - best practice]

## 📝 TEMPLATE (if applicable)
[Provide ready-to-use template if relevant]

## 🎉 MOTIVATION
[Brief motivational closing]

Keep it practical and specific to their pipeline data.
`)
	return b.String()
}

// Table renders leads as a markdown pipe table limited to cols.
func Table(rows []leads.Lead, cols []string) string {
	if len(rows) == 0 {
		return "(no rows)\n"
	}
	var b strings.Builder
	b.WriteString("| ")
	b.WriteString(strings.Join(cols, " | "))
	b.WriteString(" |\n|")
	for range cols {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString("|")
		for _, c := range cols {
			b.WriteString(" ")
			b.WriteString(safeVal(r.Field(c)))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// SplitTable separates the first lead table in prompt from the text around
// it. table is empty when the prompt carries no lead rows.
func SplitTable(prompt string) (before, table, after string) {
	lines := strings.SplitAfter(prompt, "\n")
	start, end := -1, len(lines)
	for i, l := range lines {
		isRow := strings.HasPrefix(l, "|")
		if start < 0 && isRow {
			start = i
		} else if start >= 0 && !isRow {
			end = i
			break
		}
	}
	if start < 0 {
		return prompt, "", ""
	}
	return strings.Join(lines[:start], ""), strings.Join(lines[start:end], ""), strings.Join(lines[end:], "")
}

func columnsOf(t *leads.Table) []string {
	if t != nil && len(t.Columns) > 0 {
		var cols []string
		for _, c := range t.Columns {
			if c != "" {
				cols = append(cols, c)
			}
		}
		return cols
	}
	return []string{leads.ColName, leads.ColCompany, leads.ColTitle, leads.ColSource, leads.ColActionTaken,
		leads.ColNextStep, leads.ColStatusStage, leads.ColSalesRep, leads.ColNotes, leads.ColDueDate, leads.ColActionDate}
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// sinceAction describes how long ago the lead's last action was.
func sinceAction(l leads.Lead, now time.Time) string {
	if v := l.Field("Days Since Action"); v != "" {
		return v
	}
	if at, ok := l.ActionTime(); ok && !at.After(now) {
		return humanize.RelTime(at, now, "ago", "from now")
	}
	return "several"
}
