package llm

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a missing or invalid setting. It is fatal and
// raised before any conversation starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Reason)
}

// Validate checks that the configuration can drive a run
func (c Config) Validate() error {
	if c.Model == "" {
		return &ConfigurationError{Field: "model", Reason: "must not be empty"}
	}
	if c.MaxTokens <= 0 {
		return &ConfigurationError{Field: "max_tokens", Reason: "must be positive"}
	}
	if c.MaxTurns <= 0 {
		return &ConfigurationError{Field: "max_turns", Reason: "must be positive"}
	}

	switch c.Provider {
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return &ConfigurationError{Field: "anthropic.api_key", Reason: "ANTHROPIC_API_KEY is not set"}
		}
	case ProviderOpenAI:
		// Non-default presets read their key from their own environment variable
		preset := strings.ToLower(c.OpenAI.Preset)
		if c.OpenAI.APIKey == "" && c.OpenAI.BaseURL == "" && (preset == "" || preset == "openai") {
			return &ConfigurationError{Field: "openai.api_key", Reason: "OPENAI_API_KEY is not set"}
		}
	case ProviderGoogle:
		switch c.Google.ResolvedBackend() {
		case "gemini":
			if c.Google.APIKey == "" {
				return &ConfigurationError{Field: "google.api_key", Reason: "GEMINI_API_KEY or GOOGLE_API_KEY is not set"}
			}
		case "vertexai":
			if c.Google.Project == "" {
				return &ConfigurationError{Field: "google.project", Reason: "required for the vertexai backend"}
			}
		default:
			return &ConfigurationError{Field: "google.backend", Reason: fmt.Sprintf("unknown backend %q", c.Google.Backend)}
		}
	case ProviderBedrock:
		// Credentials are resolved through the AWS default chain
	default:
		return &ConfigurationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", c.Provider)}
	}

	return nil
}
