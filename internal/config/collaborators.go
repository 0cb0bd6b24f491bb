package config

import (
	"encoding/json"
	"fmt"
)

// TushareConfig holds the financial data provider configuration.
type TushareConfig struct {
	// BaseURL is the Tushare Pro API endpoint (default: http://api.tushare.pro)
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	// Token is the Tushare API token. SENSITIVE: masked in MarshalJSON.
	Token string `mapstructure:"token" json:"token"`
	// TimeoutMs is the per-request timeout in milliseconds (default: 30000)
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (t TushareConfig) MarshalJSON() ([]byte, error) {
	type alias TushareConfig
	a := alias(t)
	a.Token = maskSecret(a.Token)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal tushare config: %w", err)
	}
	return data, nil
}

// SearXNGConfig holds SearXNG service configuration for web search.
type SearXNGConfig struct {
	// BaseURL is the SearXNG instance URL (e.g., http://searxng:8080)
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	// TimeoutMs is the per-request timeout in milliseconds (default: 30000)
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
}

// RetrieverConfig holds web content retrieval configuration.
type RetrieverConfig struct {
	// TimeoutMs is request timeout in milliseconds (default: 30000)
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
	// MaxBodyBytes limits fetched page size (default: 10MB)
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" json:"max_body_bytes"`
	// AllowLoopback permits fetching from loopback addresses.
	// For local development only; the SSRF guard blocks them otherwise.
	AllowLoopback bool `mapstructure:"allow_loopback" json:"allow_loopback"`
}

// DatadogConfig holds Datadog APM tracing configuration.
type DatadogConfig struct {
	// AgentHost is the local Datadog Agent OTLP endpoint (default: localhost:4318)
	AgentHost string `mapstructure:"agent_host" json:"agent_host"`
	// Environment tags traces (e.g., "dev", "prod")
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName identifies this service in APM
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	// APIKey is the Datadog API key. SENSITIVE: masked in MarshalJSON.
	APIKey string `mapstructure:"api_key" json:"api_key"`
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (d DatadogConfig) MarshalJSON() ([]byte, error) {
	type alias DatadogConfig
	a := alias(d)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal datadog config: %w", err)
	}
	return data, nil
}
