package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Model metadata and simple pricing helpers for dry-run cost estimates.
// Prices are illustrative.

type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

var models = map[string]ModelInfo{
	"gemini-2.0-flash":                 {Name: "gemini-2.0-flash", Provider: ProviderGemini, ContextTokens: 1048576, InputPerK: 0.0001, OutputPerK: 0.0004},
	"gemini-2.0-flash-lite":            {Name: "gemini-2.0-flash-lite", Provider: ProviderGemini, ContextTokens: 1048576, InputPerK: 0.000075, OutputPerK: 0.0003},
	"gemini-1.5-flash":                 {Name: "gemini-1.5-flash", Provider: ProviderGemini, ContextTokens: 1000000, InputPerK: 0.000075, OutputPerK: 0.0003},
	"gemini-1.5-pro":                   {Name: "gemini-1.5-pro", Provider: ProviderGemini, ContextTokens: 2000000, InputPerK: 0.00125, OutputPerK: 0.005},
	"google/gemini-2.0-flash-001":      {Name: "google/gemini-2.0-flash-001", Provider: ProviderOpenRouter, ContextTokens: 1048576, InputPerK: 0.0001, OutputPerK: 0.0004},
	"openai/gpt-4o-mini":               {Name: "openai/gpt-4o-mini", Provider: ProviderOpenRouter, ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	"anthropic/claude-3.5-sonnet":      {Name: "anthropic/claude-3.5-sonnet", Provider: ProviderOpenRouter, ContextTokens: 200000, InputPerK: 0.003, OutputPerK: 0.015},
	"meta-llama/llama-3.1-8b-instruct": {Name: "meta-llama/llama-3.1-8b-instruct", Provider: ProviderOpenRouter, ContextTokens: 131072},
	"llama3.1:8b":                      {Name: "llama3.1:8b", Provider: ProviderOllama, ContextTokens: 8192},
	"mistral:7b-instruct":              {Name: "mistral:7b-instruct", Provider: ProviderOllama, ContextTokens: 8192},
}

var defaultModels = map[string]string{
	ProviderGemini:     DefaultGeminiModel,
	ProviderOpenRouter: "google/gemini-2.0-flash-001",
	ProviderOllama:     "llama3.1:8b",
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	return defaultModels[NormalizeProvider(provider)]
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// LoadCatalogFromJSON loads a JSON object map[string]ModelInfo from a file path.
//
//	{ "gemini-2.0-flash": {"Name":"gemini-2.0-flash","ContextTokens":1048576,"InputPerK":0.0001,"OutputPerK":0.0004} }
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m map[string]ModelInfo
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return m, nil
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
		}
		models[k] = v
	}
}

// Catalog returns the current catalog sorted by name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, v := range models {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
