// Package assistant runs lead-log prompts through an injected ai.Runtime.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/leadpilot-cli/internal/ai"
	"github.com/KaramelBytes/leadpilot-cli/internal/leads"
	"github.com/KaramelBytes/leadpilot-cli/internal/metrics"
	"github.com/KaramelBytes/leadpilot-cli/internal/prompts"
	"github.com/KaramelBytes/leadpilot-cli/internal/report"
	"github.com/KaramelBytes/leadpilot-cli/internal/utils"
)

var (
	ErrEmptyResponse = errors.New("model returned an empty response")
	ErrNoRuntime     = errors.New("no AI runtime configured")
	ErrEmptyQuestion = errors.New("question cannot be empty")
	ErrNoLeads       = errors.New("no leads for rep")
)

// Kinds of generation, used for logging and metrics labels.
const (
	KindPriorities    = "priorities"
	KindFollowUp      = "follow_up"
	KindManagerReport = "manager_report"
	KindCoach         = "coach"
)

// Result is one assistant answer plus the prompt that produced it.
type Result struct {
	Kind             string `json:"kind"`
	Content          string `json:"content"`
	Prompt           string `json:"-"`
	Model            string `json:"model,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	// Generated is false when the answer was produced locally
	// (the manager report's no-activity message).
	Generated bool `json:"generated"`
}

// Assistant turns lead data into prompts and sends them to an injected
// runtime.
type Assistant struct {
	Runtime      ai.Runtime
	Model        string
	MaxTokens    int
	Temperature  float64
	PriorityRows int
	CoachRows    int
	Logger       *zap.Logger
	// OnDelta, when set and the runtime can stream, receives partial output.
	OnDelta func(string)
	Now     func() time.Time
}

// Option configures an Assistant.
type Option func(*Assistant)

func WithModel(m string) Option { return func(a *Assistant) { a.Model = m } }
func WithMaxTokens(n int) Option { return func(a *Assistant) { a.MaxTokens = n } }
func WithTemperature(t float64) Option { return func(a *Assistant) { a.Temperature = t } }
func WithLogger(l *zap.Logger) Option { return func(a *Assistant) { a.Logger = l } }
func WithStream(fn func(string)) Option { return func(a *Assistant) { a.OnDelta = fn } }
func WithClock(now func() time.Time) Option { return func(a *Assistant) { a.Now = now } }

// WithRows caps how many lead rows go into the priorities and coach prompts.
// Non-positive values keep the defaults.
func WithRows(priority, coach int) Option {
	return func(a *Assistant) {
		if priority > 0 {
			a.PriorityRows = priority
		}
		if coach > 0 {
			a.CoachRows = coach
		}
	}
}

// New returns an assistant over rt. rt may be nil for prompt-only use
// (dry runs); generating calls then fail with ErrNoRuntime.
func New(rt ai.Runtime, opts ...Option) *Assistant {
	a := &Assistant{
		Runtime:      rt,
		Model:        ai.DefaultGeminiModel,
		MaxTokens:    2048,
		Temperature:  0.7,
		PriorityRows: prompts.DefaultPriorityRows,
		CoachRows:    prompts.DefaultCoachRows,
		Logger:       zap.NewNop(),
		Now:          time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	if a.Logger == nil {
		a.Logger = zap.NewNop()
	}
	return a
}

// PrioritiesPrompt builds the priorities prompt without generating.
func (a *Assistant) PrioritiesPrompt(t *leads.Table, rep string) (string, error) {
	if rep != "" && len(t.ForRep(rep)) == 0 {
		return "", fmt.Errorf("%w %q", ErrNoLeads, rep)
	}
	if t.Len() == 0 {
		return "", fmt.Errorf("%w: lead log is empty", ErrNoLeads)
	}
	return prompts.Priorities(t, rep, a.PriorityRows), nil
}

// Priorities asks for today's top priorities across rep's leads.
func (a *Assistant) Priorities(ctx context.Context, t *leads.Table, rep string) (Result, error) {
	p, err := a.PrioritiesPrompt(t, rep)
	if err != nil {
		return Result{Kind: KindPriorities}, err
	}
	return a.Generate(ctx, KindPriorities, p)
}

// FollowUp drafts a message of the given kind for l.
func (a *Assistant) FollowUp(ctx context.Context, l leads.Lead, kind prompts.MessageKind) (Result, error) {
	return a.Generate(ctx, KindFollowUp, prompts.FollowUp(l, kind, a.Now()))
}

// ManagerReportPrompt computes the snapshot and builds the report prompt.
// ok is false when rep has no activity in rng; the returned text is then
// the final no-activity message.
func (a *Assistant) ManagerReportPrompt(t *leads.Table, rep string, rng *metrics.DateRange) (string, bool) {
	s, ok := metrics.ComputeSnapshot(t, rep, rng)
	if !ok {
		return report.NoActivity(rep, rng), false
	}
	return prompts.ManagerReport(s), true
}

// ManagerReport writes the manager update for rep over rng. With no
// activity in range the generator is not called.
func (a *Assistant) ManagerReport(ctx context.Context, t *leads.Table, rep string, rng *metrics.DateRange) (Result, error) {
	p, ok := a.ManagerReportPrompt(t, rep, rng)
	if !ok {
		a.Logger.Debug("no activity, skipping generation", zap.String("rep", rep), zap.String("period", report.Period(rng)))
		return Result{Kind: KindManagerReport, Content: p}, nil
	}
	return a.Generate(ctx, KindManagerReport, p)
}

// CoachPrompt builds the coaching prompt without generating.
func (a *Assistant) CoachPrompt(t *leads.Table, rep, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}
	return prompts.Coach(t, rep, question, a.CoachRows), nil
}

// Coach answers question in the context of rep's pipeline.
func (a *Assistant) Coach(ctx context.Context, t *leads.Table, rep, question string) (Result, error) {
	p, err := a.CoachPrompt(t, rep, question)
	if err != nil {
		return Result{Kind: KindCoach}, err
	}
	return a.Generate(ctx, KindCoach, p)
}

// Generate sends prompt to the runtime, streaming when possible.
func (a *Assistant) Generate(ctx context.Context, kind, prompt string) (Result, error) {
	res := Result{Kind: kind, Prompt: prompt, Model: a.Model, PromptTokens: utils.CountTokens(prompt)}
	if a.Runtime == nil {
		return res, ErrNoRuntime
	}
	log := a.Logger.With(zap.String("kind", kind), zap.String("model", a.Model))
	log.Debug("generate", zap.Int("prompt_tokens", res.PromptTokens))
	start := time.Now()

	req := ai.UserPrompt(a.Model, prompt, a.MaxTokens, a.Temperature)
	if sr, ok := a.Runtime.(ai.StreamRuntime); ok && a.OnDelta != nil {
		var b strings.Builder
		err := sr.GenerateStream(ctx, req, func(d string) {
			b.WriteString(d)
			a.OnDelta(d)
		})
		if err != nil {
			log.Warn("stream failed", zap.Error(err))
			return res, err
		}
		res.Content = b.String()
	} else {
		resp, err := a.Runtime.Generate(ctx, req)
		if err != nil {
			log.Warn("generate failed", zap.Error(err))
			return res, err
		}
		res.Content = resp.Text()
		res.RequestID = resp.RequestID
		if resp.Usage.PromptTokens > 0 {
			res.PromptTokens = resp.Usage.PromptTokens
		}
		res.CompletionTokens = resp.Usage.CompletionTokens
	}

	if strings.TrimSpace(res.Content) == "" {
		return res, ErrEmptyResponse
	}
	res.Generated = true
	log.Debug("generated",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", res.RequestID),
		zap.Int("completion_tokens", res.CompletionTokens))
	return res, nil
}
