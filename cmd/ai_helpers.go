package cmd

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/KaramelBytes/leadpilot-cli/internal/ai"
	"github.com/KaramelBytes/leadpilot-cli/internal/assistant"
	cfgpkg "github.com/KaramelBytes/leadpilot-cli/internal/config"
	"github.com/KaramelBytes/leadpilot-cli/internal/prompts"
	"github.com/KaramelBytes/leadpilot-cli/internal/utils"
)

// aiOptions holds the flags shared by every command that calls a model.
type aiOptions struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temp        float64
	DryRun      bool
	PrintPrompt bool
	Stream      bool
	JSON        bool
	Quiet       bool
	Raw         bool
	OutputPath  string
	OutputFmt   string
	TimeoutSec  int
	BudgetLimit float64
	OllamaHost  string

	flags *pflag.FlagSet
}

func addAIFlags(c *cobra.Command) *aiOptions {
	f := c.Flags()
	o := &aiOptions{flags: f}
	f.StringVar(&o.Provider, "provider", "", "AI provider: gemini|openrouter|ollama (default from config)")
	f.StringVar(&o.Model, "model", "", "override model (default from config or provider)")
	f.IntVar(&o.MaxTokens, "max-tokens", 0, "max tokens for response")
	f.Float64Var(&o.Temp, "temp", 0, "sampling temperature")
	f.BoolVar(&o.DryRun, "dry-run", false, "build the prompt and print token/cost estimates without calling the API")
	f.BoolVar(&o.PrintPrompt, "print-prompt", false, "print the prompt being sent to the API")
	f.BoolVar(&o.Stream, "stream", false, "stream responses if supported by the provider")
	f.BoolVar(&o.JSON, "json", false, "emit response as JSON to stdout")
	f.BoolVar(&o.Quiet, "quiet", false, "suppress non-essential output")
	f.BoolVar(&o.Raw, "raw", false, "print the response without markdown rendering")
	f.StringVar(&o.OutputPath, "output", "", "optional path to write the response (skips in --dry-run)")
	f.StringVar(&o.OutputFmt, "format", "text", "output format: text|markdown|json")
	f.IntVar(&o.TimeoutSec, "timeout-sec", 180, "request timeout in seconds")
	f.Float64Var(&o.BudgetLimit, "budget-limit", 0, "fail if estimated max cost (USD) exceeds this budget")
	f.StringVar(&o.OllamaHost, "ollama-host", "", "override Ollama host (e.g., http://127.0.0.1:11434)")
	return o
}

// set reports whether the flag was given on the command line, so that an
// explicit zero (--temp 0) wins over config.
func (o *aiOptions) set(name string) bool {
	return o.flags != nil && o.flags.Changed(name)
}

func (o *aiOptions) validate() error {
	if o.set("max-tokens") && o.MaxTokens <= 0 {
		return fmt.Errorf("--max-tokens must be positive, got %d", o.MaxTokens)
	}
	if o.set("temp") && (o.Temp < 0 || o.Temp > 2) {
		return fmt.Errorf("--temp must be between 0 and 2, got %g", o.Temp)
	}
	return nil
}

// aiTask is one prompt ready to send.
type aiTask struct {
	Kind   string
	Title  string
	Prompt string
}

// newAssistant builds an assistant without a runtime; prompts can be built
// from it before any provider is contacted.
func newAssistant(c *cfgpkg.Global, o *aiOptions, provider string) *assistant.Assistant {
	maxTokens := c.MaxTokens
	if o.set("max-tokens") || o.MaxTokens > 0 {
		maxTokens = o.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	temp := c.Temperature
	if temp == 0 {
		temp = 0.7
	}
	if o.set("temp") {
		temp = o.Temp
	}
	return assistant.New(nil,
		assistant.WithModel(selectModel(c, provider, o.Model)),
		assistant.WithMaxTokens(maxTokens),
		assistant.WithTemperature(temp),
		assistant.WithRows(c.PromptRows, c.CoachRows),
		assistant.WithLogger(logger),
	)
}

// resolveProvider picks the provider from flag, config, then the default.
func resolveProvider(c *cfgpkg.Global, flag string) string {
	p := strings.TrimSpace(flag)
	if p == "" && c != nil {
		p = c.DefaultProvider
	}
	return ai.NormalizeProvider(p)
}

// runAI estimates, optionally sends, and prints one task. A dry run returns
// a Result with Generated unset.
func runAI(cmd *cobra.Command, o *aiOptions, provider string, a *assistant.Assistant, task aiTask) (assistant.Result, error) {
	c := currentConfig()
	out := cmd.OutOrStdout()
	if err := o.validate(); err != nil {
		return assistant.Result{}, err
	}
	if o.JSON {
		o.Quiet = true
	}

	tokens := utils.CountTokens(task.Prompt)
	var estCost float64
	if mi, ok := ai.LookupModel(a.Model); ok {
		if tokens+a.MaxTokens > mi.ContextTokens {
			if !o.Quiet {
				fmt.Fprintf(out, "⚠ Prompt (%d tokens) + max-tokens (%d) exceeds %s context window (~%d tokens).\n",
					tokens, a.MaxTokens, mi.Name, mi.ContextTokens)
			}
			if trimmed, ok := fitToContext(task.Prompt, mi.ContextTokens-a.MaxTokens); ok {
				task.Prompt = trimmed
				tokens = utils.CountTokens(trimmed)
				if !o.Quiet {
					fmt.Fprintf(out, "⚠ Trimmed lead table to fit; prompt is now ≈%d tokens.\n", tokens)
				}
			}
		}
		if cost, ok := ai.EstimateCostUSD(a.Model, tokens, a.MaxTokens); ok {
			estCost = cost
		}
	}
	if !o.Quiet {
		fmt.Fprintf(out, "Tokens: prompt≈%d, max-tokens=%d, model=%s (%s)\n", tokens, a.MaxTokens, a.Model, provider)
		if estCost > 0 {
			fmt.Fprintf(out, "Estimated max cost: ~$%.4f\n", estCost)
		}
	}
	if err := enforceBudget(estCost, o.BudgetLimit); err != nil {
		return assistant.Result{}, err
	}

	if o.DryRun {
		if !o.Quiet {
			// Deterministic dry-run request id for observability
			sum := sha1.Sum([]byte(task.Prompt))
			fmt.Fprintln(out, "\n--dry-run: no API call will be made. Prompt preview below --")
			fmt.Fprintf(out, "Request ID (dry-run): sim_%x\n", sum[:6])
			fmt.Fprintf(out, "Token breakdown: %s\n", utils.FormatBreakdown(promptBreakdown(task.Prompt)))
		}
		fmt.Fprintln(out, task.Prompt)
		return assistant.Result{Kind: task.Kind, Prompt: task.Prompt, Model: a.Model, PromptTokens: tokens}, nil
	}
	if o.PrintPrompt && !o.Quiet {
		fmt.Fprintln(out, "\n--print-prompt: sending the following prompt --")
		fmt.Fprintln(out, task.Prompt)
	}

	rt, err := buildRuntime(c, provider, runtimeOptions{OllamaHost: o.OllamaHost})
	if err != nil {
		return assistant.Result{}, explainError(err, provider, a.Model)
	}
	a.Runtime = rt
	a.OnDelta = streamHandler(rt, streamingOptions{Enabled: o.Stream, Quiet: o.Quiet, Writer: out, DeltaWriter: out})
	streamed := a.OnDelta != nil

	timeout := o.TimeoutSec
	if timeout <= 0 {
		timeout = 180
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeout)*time.Second)
	defer cancel()

	if !o.Quiet && !streamed {
		fmt.Fprintf(out, "⚙ Generating %s with model=%s ...\n", task.Kind, a.Model)
	}
	res, err := a.Generate(ctx, task.Kind, task.Prompt)
	if err != nil {
		logger.Warn("generation failed", zap.String("kind", task.Kind), zap.String("provider", provider), zap.Error(err))
		return res, explainError(err, provider, a.Model)
	}
	if streamed && !o.Quiet {
		fmt.Fprintln(out)
	}
	if res.RequestID != "" && !o.Quiet {
		fmt.Fprintf(out, "Request ID: %s\n", res.RequestID)
	}
	return res, formatAndWriteOutput(res, outputOptions{
		JSON:         o.JSON,
		Quiet:        o.Quiet,
		Raw:          o.Raw,
		Streamed:     streamed,
		Title:        task.Title,
		Provider:     provider,
		MaxTokens:    a.MaxTokens,
		Temperature:  a.Temperature,
		OutputPath:   o.OutputPath,
		OutputFormat: o.OutputFmt,
		Writer:       out,
	})
}

type runtimeOptions struct {
	OllamaHost string
}

func buildRuntime(cfg *cfgpkg.Global, provider string, opts runtimeOptions) (ai.Runtime, error) {
	rc := ai.RuntimeConfig{
		HTTPTimeout: 60 * time.Second,
		RetryMax:    3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			rc.RetryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			rc.BaseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			rc.MaxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
		rc.APIKey = cfg.KeyFor(provider)
	}

	if provider == ai.ProviderOllama {
		// LEADPILOT_OLLAMA_HOST and LEADPILOT_OLLAMA_TIMEOUT_SEC reach cfg through viper.
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" && cfg != nil {
			host = cfg.OllamaHost
		}
		rc.BaseURL = host
		if cfg != nil && cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
	}
	logger.Debug("runtime", zap.String("provider", provider), zap.Duration("http_timeout", rc.HTTPTimeout), zap.Int("retry_max", rc.RetryMax))
	return ai.GetRuntime(provider, rc)
}

// selectModel prefers the flag, then config, then the provider default.
// A configured model is ignored when it belongs to another provider's catalog.
func selectModel(cfg *cfgpkg.Global, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" {
		if mi, ok := ai.LookupModel(cfg.DefaultModel); !ok || mi.Provider == provider {
			return cfg.DefaultModel
		}
	}
	return ai.DefaultModel(provider)
}

func enforceBudget(estCost, limit float64) error {
	if limit > 0 && estCost > 0 && estCost > limit {
		return fmt.Errorf("✗ Estimated cost ~$%.4f exceeds budget limit ~$%.4f", estCost, limit)
	}
	return nil
}

// fitToContext trims the lead table in prompt so the whole prompt fits in
// budget tokens. ok is false when there is no table or nothing can be kept.
func fitToContext(prompt string, budget int) (string, bool) {
	before, table, after := prompts.SplitTable(prompt)
	if table == "" {
		return prompt, false
	}
	room := budget - utils.CountTokens(before+after)
	kept := utils.TruncateToTokenLimit(table, room)
	if strings.Count(kept, "\n") <= 2 {
		// header and separator only
		return prompt, false
	}
	return before + kept + after, true
}

func promptBreakdown(prompt string) map[string]int {
	before, table, after := prompts.SplitTable(prompt)
	return utils.TokenBreakdown(map[string]string{"instructions": before + after, "lead table": table})
}

type streamingOptions struct {
	Enabled     bool
	Quiet       bool
	Writer      io.Writer
	DeltaWriter io.Writer
}

// streamHandler returns the delta sink for a streaming run, or nil when
// streaming is off or the runtime cannot stream.
func streamHandler(runtime ai.Runtime, opts streamingOptions) func(string) {
	if !opts.Enabled {
		return nil
	}
	logWriter := opts.Writer
	if logWriter == nil {
		logWriter = os.Stdout
	}
	deltaWriter := opts.DeltaWriter
	if deltaWriter == nil {
		deltaWriter = os.Stdout
	}
	if _, ok := runtime.(ai.StreamRuntime); !ok {
		if !opts.Quiet {
			fmt.Fprintln(logWriter, "⚠ Streaming not supported for this provider; falling back to non-streaming.")
		}
		return nil
	}
	if !opts.Quiet {
		fmt.Fprintln(logWriter, "(streaming)")
	}
	return func(delta string) { fmt.Fprint(deltaWriter, delta) }
}

type outputOptions struct {
	JSON         bool
	Quiet        bool
	Raw          bool
	Streamed     bool
	Title        string
	Provider     string
	MaxTokens    int
	Temperature  float64
	OutputPath   string
	OutputFormat string
	Writer       io.Writer
}

type outputDoc struct {
	Kind             string  `json:"kind"`
	Title            string  `json:"title,omitempty"`
	Provider         string  `json:"provider,omitempty"`
	Model            string  `json:"model"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float64 `json:"temperature"`
	RequestID        string  `json:"request_id,omitempty"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	Content          string  `json:"content"`
}

func formatAndWriteOutput(res assistant.Result, opts outputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	doc := outputDoc{
		Kind:             res.Kind,
		Title:            opts.Title,
		Provider:         opts.Provider,
		Model:            res.Model,
		MaxTokens:        opts.MaxTokens,
		Temperature:      opts.Temperature,
		RequestID:        res.RequestID,
		PromptTokens:     res.PromptTokens,
		CompletionTokens: res.CompletionTokens,
		Content:          res.Content,
	}

	switch {
	case opts.JSON:
		b, err := utils.PrettyJSON(doc)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
	case opts.Quiet:
		fmt.Fprintln(w, res.Content)
	case opts.Streamed:
		// already written as it arrived
	case opts.Raw:
		fmt.Fprintln(w, "\n=== AI Response ===")
		fmt.Fprintln(w, res.Content)
	default:
		fmt.Fprintln(w, renderMarkdown(res.Content))
	}

	if opts.OutputPath == "" {
		return nil
	}

	var data []byte
	switch opts.OutputFormat {
	case "", "text":
		data = []byte(res.Content)
	case "markdown", "md":
		var b strings.Builder
		if opts.Title != "" {
			b.WriteString("# " + opts.Title + "\n\n")
		}
		b.WriteString(fmt.Sprintf("_model: %s, generated: %s_\n\n", res.Model, time.Now().Format("2006-01-02 15:04")))
		b.WriteString(res.Content)
		b.WriteString("\n")
		data = []byte(b.String())
	case "json":
		b, err := utils.PrettyJSON(doc)
		if err != nil {
			return err
		}
		data = b
	default:
		return fmt.Errorf("unsupported --format: %s (use text|markdown|json)", opts.OutputFormat)
	}
	if err := utils.SafeWriteFile(opts.OutputPath, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if !opts.Quiet {
		fmt.Fprintf(w, "\n💾 Saved output to %s\n", opts.OutputPath)
	}
	return nil
}

// renderMarkdown renders for the terminal, falling back to the raw text.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// explainError adds user-facing hints for common provider failures.
func explainError(err error, provider, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.Is(err, ai.ErrMissingAPIKey):
		if provider == ai.ProviderOpenRouter {
			return fmt.Errorf("no API key for openrouter: set OPENROUTER_API_KEY or 'leadpilot config set api_key ...': %w", err)
		}
		return fmt.Errorf("no API key for %s: set GOOGLE_API_KEY or 'leadpilot config set gemini_api_key ...': %w", provider, err)
	case errors.Is(err, assistant.ErrEmptyResponse):
		return fmt.Errorf("model %s returned an empty response; retry or raise --max-tokens: %w", model, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("request timed out; raise --timeout-sec: %w", err)
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running (see https://ollama.com) and host is correct. You can set LEADPILOT_OLLAMA_HOST or config 'ollama_host'. Detail: %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: check the %s API key in ~/.leadpilot/config.yaml or the environment: %w", provider, err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model. %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name with 'leadpilot models show': %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try fewer rows (prompt_rows/coach_rows) or a smaller --max-tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	}
	return fmt.Errorf("generation failed: %w", err)
}
