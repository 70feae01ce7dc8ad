package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/leadpilot-cli/internal/ai"
	"github.com/KaramelBytes/leadpilot-cli/internal/assistant"
	"github.com/KaramelBytes/leadpilot-cli/internal/server"
)

var (
	serveAddr       string
	serveProvider   string
	serveModel      string
	serveOllamaHost string
	serveNoAI       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the lead log, metrics and assistant over local HTTP",
	Example: `  leadpilot serve -f leads.xlsx
  leadpilot serve -f leads.xlsx --addr 127.0.0.1:9090 --provider ollama`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}
		c := currentConfig()
		addr := serveAddr
		if addr == "" {
			addr = c.ListenAddr
		}

		var asst *assistant.Assistant
		if !serveNoAI {
			provider := resolveProvider(c, serveProvider)
			rt, err := buildRuntime(c, provider, runtimeOptions{OllamaHost: serveOllamaHost})
			switch {
			case errors.Is(err, ai.ErrMissingAPIKey):
				// keep serving metrics; AI endpoints answer 503
				logger.Warn("assistant disabled", zap.String("provider", provider), zap.Error(err))
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ No API key for %s; AI endpoints are disabled.\n", provider)
			case err != nil:
				return explainError(err, provider, serveModel)
			default:
				asst = newAssistant(c, &aiOptions{Model: serveModel}, provider)
				asst.Runtime = rt
			}
		}

		srv := server.New(server.Options{
			Table:        t,
			Assistant:    asst,
			Logger:       logger,
			ManagerPhone: c.ManagerPhone,
			ReportDays:   c.ReportDays,
		})
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "Serving %d leads on http://%s (Ctrl+C to stop)\n", t.Len(), addr)
		return srv.Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config listen_addr)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "AI provider: gemini|openrouter|ollama (default from config)")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "override model (default from config or provider)")
	serveCmd.Flags().StringVar(&serveOllamaHost, "ollama-host", "", "override Ollama host")
	serveCmd.Flags().BoolVar(&serveNoAI, "no-ai", false, "serve metrics only; AI endpoints answer 503")
}
