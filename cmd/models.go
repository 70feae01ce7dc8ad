package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/leadpilot-cli/internal/ai"
	"github.com/KaramelBytes/leadpilot-cli/internal/utils"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model catalog, pricing and providers",
	Example: `  leadpilot models show
  leadpilot models show --provider ollama
  leadpilot models show --merge ./models.json --json
  leadpilot models providers`,
}

var (
	showProvider string
	showMerge    string
	showJSON     bool
)

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current model catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showMerge != "" {
			m, err := ai.LoadCatalogFromJSON(showMerge)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			ai.MergeCatalog(m)
		}
		want := ""
		if showProvider != "" {
			want = ai.NormalizeProvider(showProvider)
		}
		var rows []ai.ModelInfo
		for _, mi := range ai.Catalog() {
			if want == "" || mi.Provider == want {
				rows = append(rows, mi)
			}
		}
		out := cmd.OutOrStdout()
		if showJSON {
			b, err := utils.PrettyJSON(rows)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "%-34s %-11s %10s %10s %10s\n", "MODEL", "PROVIDER", "CONTEXT", "IN/1K", "OUT/1K")
		for _, mi := range rows {
			fmt.Fprintf(out, "%-34s %-11s %10d %10s %10s\n", mi.Name, mi.Provider, mi.ContextTokens, price(mi.InputPerK), price(mi.OutputPerK))
		}
		return nil
	},
}

var modelsProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List AI providers and their default models",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		def := resolveProvider(currentConfig(), "")
		for _, p := range ai.Providers() {
			marker := " "
			if p == def {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-11s default model: %s\n", marker, p, ai.DefaultModel(p))
		}
		fmt.Fprintf(out, "\naliases: %s\n", strings.Join([]string{"google→gemini", "local→ollama"}, ", "))
		return nil
	},
}

func price(perK float64) string {
	if perK == 0 {
		return "-"
	}
	return fmt.Sprintf("$%.5f", perK)
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsProvidersCmd)

	modelsShowCmd.Flags().StringVar(&showProvider, "provider", "", "only show models of this provider")
	modelsShowCmd.Flags().StringVar(&showMerge, "merge", "", "merge a JSON catalog file before showing")
	modelsShowCmd.Flags().BoolVar(&showJSON, "json", false, "emit the catalog as JSON")
}
