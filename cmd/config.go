package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/leadpilot-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set LeadPilot configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		for _, k := range cfgpkg.Keys {
			v := configValue(cfg, k)
			if strings.HasSuffix(k, "api_key") {
				v = mask(v)
			}
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Example: `  leadpilot config set default_provider ollama
  leadpilot config set manager_phone "+91 99462 94194"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := cfg.Set(key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func configValue(c *cfgpkg.Global, key string) string {
	switch key {
	case "api_key":
		return c.APIKey
	case "gemini_api_key":
		return c.GeminiAPIKey
	case "default_provider":
		return c.DefaultProvider
	case "default_model":
		return c.DefaultModel
	case "max_tokens":
		return fmt.Sprint(c.MaxTokens)
	case "temperature":
		return fmt.Sprintf("%.3f", c.Temperature)
	case "lead_sheet":
		return c.LeadSheet
	case "prompt_rows":
		return fmt.Sprint(c.PromptRows)
	case "coach_rows":
		return fmt.Sprint(c.CoachRows)
	case "report_days":
		return fmt.Sprint(c.ReportDays)
	case "manager_phone":
		return c.ManagerPhone
	case "listen_addr":
		return c.ListenAddr
	case "http_timeout_sec":
		return fmt.Sprint(c.HTTPTimeoutSec)
	case "retry_max_attempts":
		return fmt.Sprint(c.RetryMaxAttempts)
	case "retry_base_delay_ms":
		return fmt.Sprint(c.RetryBaseDelayMs)
	case "retry_max_delay_ms":
		return fmt.Sprint(c.RetryMaxDelayMs)
	case "ollama_host":
		return c.OllamaHost
	case "ollama_timeout_sec":
		return fmt.Sprint(c.OllamaTimeoutSec)
	}
	return ""
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
