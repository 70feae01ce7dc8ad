package ai

import (
	"fmt"
	"sort"
	"time"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) (Runtime, error)

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Hosted providers (Gemini, OpenRouter)
	APIKey string
	// Overrides the provider endpoint; Ollama uses it as its host.
	BaseURL string
}

func (c RuntimeConfig) policy(def retryPolicy) retryPolicy {
	p := retryPolicy{attempts: c.RetryMax, base: c.BaseDelay, max: c.MaxDelay}
	if p.attempts <= 0 {
		p.attempts = def.attempts
	}
	if p.base <= 0 {
		p.base = def.base
	}
	if p.max <= 0 {
		p.max = def.max
	}
	return p
}

func (c RuntimeConfig) timeout() time.Duration {
	if c.HTTPTimeout <= 0 {
		return 60 * time.Second
	}
	return c.HTTPTimeout
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// Providers lists registered provider names, sorted.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GetRuntime creates a Runtime for the given provider (aliases allowed).
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, error) {
	f, ok := registry[NormalizeProvider(name)]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", name, Providers())
	}
	return f(cfg)
}

func init() {
	RegisterRuntime(ProviderGemini, func(c RuntimeConfig) (Runtime, error) { return NewGeminiClient(c) })
	RegisterRuntime(ProviderOpenRouter, func(c RuntimeConfig) (Runtime, error) { return NewOpenRouterClient(c) })
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) (Runtime, error) { return NewOllamaClient(c), nil })
}
