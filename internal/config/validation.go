package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Validate checks the configuration for correctness.
// Returns a sentinel error (wrapped with context) on the first failure.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if err := c.validateAI(); err != nil {
		return err
	}
	if err := c.validateTushare(); err != nil {
		return err
	}
	return c.validateSearXNG()
}

// ValidateServe performs additional checks required for serve mode.
// The Tushare token is only needed when the report workflow can actually
// reach the data provider, so it is enforced here rather than in Validate.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Tushare.Token) == "" {
		return fmt.Errorf("%w: set TUSHARE_TOKEN", ErrMissingTushareToken)
	}
	return nil
}

func (c *Config) validateAI() error {
	switch c.Provider {
	case ProviderGemini, ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY required for provider %q", ErrMissingAPIKey, c.Provider)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY required for provider %q", ErrMissingAPIKey, c.Provider)
		}
	default:
		return fmt.Errorf("%w: %q (supported: gemini, googleai, openai)", ErrInvalidProvider, c.Provider)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model_name is empty", ErrInvalidModelName)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be 0-2)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 1048576 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	return nil
}

func (c *Config) validateTushare() error {
	return validateHTTPURL(c.Tushare.BaseURL, ErrInvalidTushareURL)
}

func (c *Config) validateSearXNG() error {
	return validateHTTPURL(c.SearXNG.BaseURL, ErrInvalidSearXNGURL)
}

func validateHTTPURL(raw string, sentinel error) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty", sentinel)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q (must be http or https)", sentinel, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", sentinel)
	}
	return nil
}
