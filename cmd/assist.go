package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/leadpilot-cli/internal/assistant"
	"github.com/KaramelBytes/leadpilot-cli/internal/leads"
	"github.com/KaramelBytes/leadpilot-cli/internal/prompts"
)

var (
	priRep  string
	priOpts *aiOptions
)

var prioritiesCmd = &cobra.Command{
	Use:   "priorities",
	Short: "Ask the model for today's top 3 priorities",
	Example: `  leadpilot priorities -f leads.xlsx --rep "Asha"
  leadpilot priorities -f leads.xlsx --rep "Asha" --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}
		c := currentConfig()
		provider := resolveProvider(c, priOpts.Provider)
		a := newAssistant(c, priOpts, provider)
		prompt, err := a.PrioritiesPrompt(t, strings.TrimSpace(priRep))
		if err != nil {
			return err
		}
		title := "Today's priorities"
		if priRep != "" {
			title += ": " + priRep
		}
		_, err = runAI(cmd, priOpts, provider, a, aiTask{Kind: assistant.KindPriorities, Title: title, Prompt: prompt})
		return err
	},
}

var (
	msgRep  string
	msgLead string
	msgType string
	msgOpts *aiOptions
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Draft a follow-up message for one lead",
	Example: `  leadpilot message -f leads.xlsx --rep "Asha" --lead "Priya Nair" --type connection
  leadpilot message -f leads.xlsx --lead "Omar Haddad" --type proposal_followup --output omar.md --format markdown`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(msgLead) == "" {
			return fmt.Errorf("--lead is required")
		}
		t, err := loadTable()
		if err != nil {
			return err
		}
		lead, err := t.FindLead(strings.TrimSpace(msgRep), msgLead)
		if err != nil {
			var nf *leads.NotFoundError
			if errors.As(err, &nf) && len(nf.Suggestions) == 0 && msgRep != "" {
				return fmt.Errorf("%w (searched leads of %s only)", err, msgRep)
			}
			return err
		}
		kind := prompts.ParseMessageKind(msgType)
		c := currentConfig()
		provider := resolveProvider(c, msgOpts.Provider)
		a := newAssistant(c, msgOpts, provider)
		title := fmt.Sprintf("%s message for %s", kind, lead.Name)
		_, err = runAI(cmd, msgOpts, provider, a, aiTask{
			Kind:   assistant.KindFollowUp,
			Title:  title,
			Prompt: prompts.FollowUp(lead, kind, time.Now()),
		})
		return err
	},
}

var (
	coachRep  string
	coachOpts *aiOptions
)

var coachCmd = &cobra.Command{
	Use:   "coach <question>",
	Short: "Ask the sales coach a question about a rep's pipeline",
	Example: `  leadpilot coach -f leads.xlsx --rep "Asha" "How do I re-engage leads stuck in Contacted?"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}
		c := currentConfig()
		provider := resolveProvider(c, coachOpts.Provider)
		a := newAssistant(c, coachOpts, provider)
		prompt, err := a.CoachPrompt(t, strings.TrimSpace(coachRep), strings.Join(args, " "))
		if err != nil {
			return err
		}
		_, err = runAI(cmd, coachOpts, provider, a, aiTask{Kind: assistant.KindCoach, Title: "Sales coach", Prompt: prompt})
		return err
	},
}

var (
	reportRep   string
	reportShare bool
	reportPhone string
	reportRange *rangeFlags
	reportOpts  *aiOptions
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write an AI manager report for a rep's recent activity",
	Example: `  leadpilot report -f leads.xlsx --rep "Asha"
  leadpilot report -f leads.xlsx --rep "Asha" --from 2024-01-01 --to 2024-01-07 --share`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}
		rep, err := requireRep(t, reportRep)
		if err != nil {
			return err
		}
		c := currentConfig()
		rng, err := reportRange.resolve(time.Now(), c.ReportDays)
		if err != nil {
			return err
		}
		provider := resolveProvider(c, reportOpts.Provider)
		a := newAssistant(c, reportOpts, provider)
		prompt, ok := a.ManagerReportPrompt(t, rep, rng)
		if !ok {
			// nothing to summarise; the model is not called
			fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return nil
		}
		res, err := runAI(cmd, reportOpts, provider, a, aiTask{
			Kind:   assistant.KindManagerReport,
			Title:  "Manager report: " + rep,
			Prompt: prompt,
		})
		if err != nil {
			return err
		}
		if reportShare && res.Generated {
			return printShareLink(cmd, reportPhone, res.Content)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prioritiesCmd)
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(coachCmd)
	rootCmd.AddCommand(reportCmd)

	prioritiesCmd.Flags().StringVar(&priRep, "rep", "", "sales rep name (default: whole team)")
	priOpts = addAIFlags(prioritiesCmd)

	messageCmd.Flags().StringVar(&msgRep, "rep", "", "limit the lead search to this rep")
	messageCmd.Flags().StringVar(&msgLead, "lead", "", "lead name as written in the log")
	messageCmd.Flags().StringVar(&msgType, "type", string(prompts.KindDefault), "message type: connection|follow_up_1|proposal_followup|default")
	msgOpts = addAIFlags(messageCmd)

	coachCmd.Flags().StringVar(&coachRep, "rep", "", "sales rep name (default: whole team)")
	coachOpts = addAIFlags(coachCmd)

	reportCmd.Flags().StringVar(&reportRep, "rep", "", "sales rep name")
	reportCmd.Flags().BoolVar(&reportShare, "share", false, "print a WhatsApp share link for the generated report")
	reportCmd.Flags().StringVar(&reportPhone, "phone", "", "share target phone (default from config manager_phone)")
	reportRange = addRangeFlags(reportCmd)
	reportOpts = addAIFlags(reportCmd)
}
