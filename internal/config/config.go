// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.kanpan/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider, chat model, report model, temperature, max tokens
//   - Tushare: financial data provider endpoint and token (see collaborators.go)
//   - SearXNG: web search endpoint (see collaborators.go)
//   - Server: CORS, proxy trust, rate limiting
//   - Observability: Datadog APM tracing (see collaborators.go)
//
// Security: sensitive data (tokens, API keys) is never logged; MarshalJSON
// masks it explicitly.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidTushareURL indicates the Tushare base URL is invalid.
	ErrInvalidTushareURL = errors.New("invalid tushare URL")

	// ErrMissingTushareToken indicates the Tushare API token is not set.
	ErrMissingTushareToken = errors.New("missing tushare token")

	// ErrInvalidSearXNGURL indicates the SearXNG base URL is invalid.
	ErrInvalidSearXNGURL = errors.New("invalid searxng URL")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (tokens, API keys), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`         // "gemini" (default), "openai"
	ModelName   string  `mapstructure:"model_name" json:"model_name"`     // Chat model (e.g., "gemini-2.5-flash")
	ReportModel string  `mapstructure:"report_model" json:"report_model"` // Report generation model; empty = same as ModelName
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Collaborator configuration (see collaborators.go for type definitions)
	Tushare   TushareConfig   `mapstructure:"tushare" json:"tushare"`
	SearXNG   SearXNGConfig   `mapstructure:"searxng" json:"searxng"`
	Retriever RetrieverConfig `mapstructure:"retriever" json:"retriever"`

	// Observability configuration
	Datadog DatadogConfig `mapstructure:"datadog" json:"datadog"`

	// Server configuration (serve mode only)
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For headers (set true behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`   // Per-IP token bucket burst (0 = default)
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.kanpan/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".kanpan")

	// Ensure directory exists (0750 for better security)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	// Configure Viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	// Use Unmarshal to automatically map to struct (type-safe)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// CRITICAL: Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("report_model", "")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 8192)

	// Tushare defaults (official endpoint)
	viper.SetDefault("tushare.base_url", "http://api.tushare.pro")
	viper.SetDefault("tushare.timeout_ms", 30000)

	// SearXNG defaults
	viper.SetDefault("searxng.base_url", "http://localhost:8888")
	viper.SetDefault("searxng.timeout_ms", 30000)

	// Retriever defaults
	viper.SetDefault("retriever.timeout_ms", 30000)
	viper.SetDefault("retriever.max_body_bytes", 10*1024*1024)
	viper.SetDefault("retriever.allow_loopback", false)

	// CORS defaults (local dev frontend)
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})

	// Proxy trust (default false, safe for direct exposure; set true behind reverse proxy)
	viper.SetDefault("trust_proxy", false)

	// Datadog defaults
	viper.SetDefault("datadog.agent_host", "localhost:4318")
	viper.SetDefault("datadog.environment", "dev")
	viper.SetDefault("datadog.service_name", "kanpan")
}

// bindEnvVariables binds sensitive environment variables explicitly.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Tushare data provider token
	mustBind("tushare.token", "TUSHARE_TOKEN")
	mustBind("tushare.base_url", "TUSHARE_API_URL")

	// Datadog API key (optional, for observability)
	mustBind("datadog.api_key", "DD_API_KEY")

	// Server overrides
	mustBind("cors_origins", "KANPAN_CORS_ORIGINS")
	mustBind("trust_proxy", "KANPAN_TRUST_PROXY")

	// AI provider and model overrides
	mustBind("provider", "KANPAN_PROVIDER")
	mustBind("model_name", "KANPAN_MODEL_NAME")
	mustBind("report_model", "KANPAN_REPORT_MODEL")

	// NOTE: GEMINI_API_KEY / OPENAI_API_KEY are read directly by the Genkit
	// plugins, not via Viper. Validation checks their presence based on the
	// selected provider in cfg.Validate().
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid substring matching against the secret.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters, masks the rest.
// SECURITY: secrets of 8 chars or fewer are fully masked to prevent
// substring attacks.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - Tushare.Token (via TushareConfig.MarshalJSON)
//   - Datadog.APIKey (via DatadogConfig.MarshalJSON)
//
// When adding new sensitive fields, update this method or the nested struct's
// MarshalJSON. The compiler will remind you when tests fail.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	data, err := json.Marshal(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified chat model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "openai/gpt-4o".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	return c.qualify(c.ModelName)
}

// FullReportModelName returns the provider-qualified report model name.
// Falls back to the chat model when report_model is unset.
func (c *Config) FullReportModelName() string {
	if c.ReportModel == "" {
		return c.FullModelName()
	}
	return c.qualify(c.ReportModel)
}

func (c *Config) qualify(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	switch c.Provider {
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + name
	default:
		return ProviderGoogleAI + "/" + name
	}
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
