package prompts

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/leadpilot-cli/internal/leads"
)

// MessageKind selects a follow-up template.
type MessageKind string

const (
	KindConnection       MessageKind = "connection"
	KindFollowUp         MessageKind = "follow_up_1"
	KindProposalFollowUp MessageKind = "proposal_followup"
	KindDefault          MessageKind = "default"
)

// MessageKinds lists the accepted kinds in display order.
var MessageKinds = []MessageKind{KindConnection, KindFollowUp, KindProposalFollowUp, KindDefault}

// ParseMessageKind normalizes user input. Unknown values map to KindDefault.
func ParseMessageKind(s string) MessageKind {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	switch k {
	case "connection", "connect", "first_connection":
		return KindConnection
	case "follow_up_1", "follow_up", "followup", "first_follow_up":
		return KindFollowUp
	case "proposal_followup", "proposal_follow_up", "proposal":
		return KindProposalFollowUp
	}
	return KindDefault
}

// FollowUp builds the message-draft prompt of the given kind for l.
func FollowUp(l leads.Lead, kind MessageKind, now time.Time) string {
	switch kind {
	case KindConnection:
		return fmt.Sprintf(`Create a FIRST CONNECTION LinkedIn message with this structure:

**Subject:** Connection Request - Mutual Interest in [Industry/Area]

**Message:**
Hi [Name],

I came across your profile and noticed your work at [Company] in [Title]. [Specific compliment about their role/company].

I'd love to connect and learn more about [specific aspect of their work].

Best regards,
[Sales Rep Name]

**Key points to include:**
- Professional but friendly tone
- Specific reference to their company/role
- Clear but soft call-to-action
- 2-3 sentences maximum

Lead Details:
Name: %s
Company: %s
Title: %s
Source: %s
`, l.Name, l.Company, l.Title, l.Source)
	case KindFollowUp:
		return fmt.Sprintf(`Create a FIRST FOLLOW-UP message (2-3 days after connection):

**Subject:** Following up on our connection

**Message:**
Hi [Name],

Hope you're having a productive week. I wanted to follow up on our connection and [provide specific value - share relevant insight/article/case study].

[Specific question to engage them].

Looking forward to your thoughts.

Best,
[Sales Rep Name]

Lead Details:
Name: %s
Company: %s
Last Action: %s
Notes: %s
`, l.Name, l.Company, orDefault(l.ActionTaken, "Connected"), l.Notes)
	case KindProposalFollowUp:
		return fmt.Sprintf(`Create a PROFESSIONAL PROPOSAL FOLLOW-UP:

**Subject:** Following up on our proposal

**Message:**
Hi [Name],

I wanted to follow up on the proposal we sent [timeframe]. Do you have any questions I can clarify?

[Offer specific additional value - case study, reference, demo]

Would you be available for a quick call [suggest specific days/times]?

Best regards,
[Sales Rep Name]

Lead Details:
Name: %s
Company: %s
Days since proposal: %s
`, l.Name, l.Company, sinceAction(l, now))
	default:
		return fmt.Sprintf(`Create a personalized follow-up message:

**Structure:**
- Professional greeting
- Reference previous interaction
- Provide specific value
- Clear call-to-action
- Professional closing

Lead Details:
Name: %s
Company: %s
Title: %s
Last Action: %s
Next Step: %s
Notes: %s
`, l.Name, l.Company, l.Title, l.ActionTaken, l.NextStep, l.Notes)
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
