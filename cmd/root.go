package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/leadpilot-cli/internal/config"
	"github.com/KaramelBytes/leadpilot-cli/internal/leads"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	leadFile  string
	sheetName string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
	// Per-run logger; replaced in PersistentPreRunE.
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "leadpilot",
	Short: "LeadPilot CLI: sales lead metrics, reports and AI coaching",
	Long: `LeadPilot reads a sales team's lead log (CSV or XLSX), computes per-rep
performance metrics, renders manager reports and asks an AI model for
priorities, follow-up drafts and coaching.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(debug)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		logger.Debug("start", zap.String("command", cmd.CommandPath()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.leadpilot/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging on stderr")
	rootCmd.PersistentFlags().StringVarP(&leadFile, "file", "f", "", "lead log spreadsheet (.csv or .xlsx)")
	rootCmd.PersistentFlags().StringVar(&sheetName, "sheet", "", "worksheet name (default from config lead_sheet)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
	}
}

// currentConfig returns the loaded config, or defaults when loading failed.
func currentConfig() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	if c, err := cfgpkg.Load(cfgFile); err == nil {
		cfg = c
		return cfg
	}
	return &cfgpkg.Global{LeadSheet: leads.DefaultSheet, MaxTokens: 2048, Temperature: 0.7, PromptRows: 15, CoachRows: 8, ReportDays: 7}
}

func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("session", uuid.NewString())), nil
}

// loadTable reads the lead log named by --file.
func loadTable() (*leads.Table, error) {
	if strings.TrimSpace(leadFile) == "" {
		return nil, fmt.Errorf("--file is required (path to the lead log .csv or .xlsx)")
	}
	sheet := sheetName
	if sheet == "" {
		sheet = currentConfig().LeadSheet
	}
	t, err := leads.Load(leadFile, sheet)
	if err != nil {
		return nil, err
	}
	logger.Debug("leads loaded",
		zap.String("file", leadFile),
		zap.String("sheet", t.Sheet),
		zap.Int("rows", t.Len()),
		zap.Int("skipped", t.Skipped))
	return t, nil
}

// requireRep trims --rep and lists the known reps when it is missing.
func requireRep(t *leads.Table, rep string) (string, error) {
	rep = strings.TrimSpace(rep)
	if rep == "" {
		return "", fmt.Errorf("--rep is required (available: %s)", strings.Join(t.Reps(), ", "))
	}
	return rep, nil
}
