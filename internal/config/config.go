package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// OpenRouter key; GeminiAPIKey is used by the gemini provider.
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	GeminiAPIKey    string  `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider" validate:"omitempty,oneof=gemini google openrouter ollama local"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens" validate:"gte=0"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`

	// Lead log defaults
	LeadSheet    string `mapstructure:"lead_sheet" yaml:"lead_sheet"`
	PromptRows   int    `mapstructure:"prompt_rows" yaml:"prompt_rows" validate:"gte=1,lte=500"`
	CoachRows    int    `mapstructure:"coach_rows" yaml:"coach_rows" validate:"gte=1,lte=500"`
	ReportDays   int    `mapstructure:"report_days" yaml:"report_days" validate:"gte=1,lte=366"`
	ManagerPhone string `mapstructure:"manager_phone" yaml:"manager_phone" validate:"omitempty,max=24"`

	// Local HTTP surface
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr" validate:"omitempty,hostname_port"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec" validate:"gte=0"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts" validate:"gte=0,lte=10"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms" validate:"gte=0"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms" validate:"gte=0"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host" validate:"omitempty,url"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec" validate:"gte=0"`
}

// Dir returns ~/.leadpilot.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".leadpilot"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.leadpilot/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("LEADPILOT")
	v.AutomaticEnv()

	v.SetDefault("api_key", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("default_provider", "gemini")
	v.SetDefault("default_model", "")
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("lead_sheet", "Daily Lead Log")
	v.SetDefault("prompt_rows", 15)
	v.SetDefault("coach_rows", 8)
	v.SetDefault("report_days", 7)
	v.SetDefault("manager_phone", "")
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 60)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Provider-native env vars fill keys left empty.
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY")
	}
	if c.APIKey == "" {
		c.APIKey = firstEnv("OPENROUTER_API_KEY")
	}
	return &c, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// KeyFor returns the API key configured for provider.
func (c *Global) KeyFor(provider string) string {
	switch strings.ToLower(provider) {
	case "gemini", "google", "":
		return c.GeminiAPIKey
	case "openrouter":
		return c.APIKey
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges and enumerations.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Keys lists the keys accepted by Set, in display order.
var Keys = []string{
	"api_key", "gemini_api_key", "default_provider", "default_model", "max_tokens", "temperature",
	"lead_sheet", "prompt_rows", "coach_rows", "report_days", "manager_phone", "listen_addr",
	"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	"ollama_host", "ollama_timeout_sec",
}

// Set assigns a single key from its string form and re-validates.
func (c *Global) Set(key, val string) error {
	next := *c
	var err error
	switch key {
	case "api_key":
		next.APIKey = val
	case "gemini_api_key":
		next.GeminiAPIKey = val
	case "default_provider":
		next.DefaultProvider = strings.ToLower(val)
	case "default_model":
		next.DefaultModel = val
	case "max_tokens":
		next.MaxTokens, err = strconv.Atoi(val)
	case "temperature":
		next.Temperature, err = strconv.ParseFloat(val, 64)
	case "lead_sheet":
		next.LeadSheet = val
	case "prompt_rows":
		next.PromptRows, err = strconv.Atoi(val)
	case "coach_rows":
		next.CoachRows, err = strconv.Atoi(val)
	case "report_days":
		next.ReportDays, err = strconv.Atoi(val)
	case "manager_phone":
		next.ManagerPhone = val
	case "listen_addr":
		next.ListenAddr = val
	case "http_timeout_sec":
		next.HTTPTimeoutSec, err = strconv.Atoi(val)
	case "retry_max_attempts":
		next.RetryMaxAttempts, err = strconv.Atoi(val)
	case "retry_base_delay_ms":
		next.RetryBaseDelayMs, err = strconv.Atoi(val)
	case "retry_max_delay_ms":
		next.RetryMaxDelayMs, err = strconv.Atoi(val)
	case "ollama_host":
		next.OllamaHost = val
	case "ollama_timeout_sec":
		next.OllamaTimeoutSec, err = strconv.Atoi(val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
