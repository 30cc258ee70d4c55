package llm

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Provider:  ProviderAnthropic,
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 4096,
		MaxTurns:  50,
		Anthropic: AnthropicConfig{APIKey: "sk-test"},
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty model", func(c *Config) { c.Model = "" }, "model"},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }, "max_tokens"},
		{"zero max turns", func(c *Config) { c.MaxTurns = 0 }, "max_turns"},
		{"missing anthropic key", func(c *Config) { c.Anthropic.APIKey = "" }, "anthropic.api_key"},
		{"unknown provider", func(c *Config) { c.Provider = "cohere" }, "provider"},
		{"missing openai key", func(c *Config) { c.Provider = ProviderOpenAI }, "openai.api_key"},
		{"missing gemini key", func(c *Config) { c.Provider = ProviderGoogle }, "google.api_key"},
		{"vertex without project", func(c *Config) {
			c.Provider = ProviderGoogle
			c.Google.Backend = "vertexai"
		}, "google.project"},
		{"unknown google backend", func(c *Config) {
			c.Provider = ProviderGoogle
			c.Google.Backend = "other"
		}, "google.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfigValidateProviders(t *testing.T) {
	config := validConfig()
	config.Provider = ProviderBedrock
	assert.NoError(t, config.Validate())

	config.Provider = ProviderOpenAI
	config.OpenAI.BaseURL = "http://localhost:11434/v1"
	assert.NoError(t, config.Validate())
}

func TestGoogleResolvedBackend(t *testing.T) {
	assert.Equal(t, "gemini", GoogleConfig{}.ResolvedBackend())
	assert.Equal(t, "gemini", GoogleConfig{APIKey: "k", Project: "p"}.ResolvedBackend())
	assert.Equal(t, "vertexai", GoogleConfig{Project: "p"}.ResolvedBackend())
	assert.Equal(t, "vertexai", GoogleConfig{Backend: "VertexAI"}.ResolvedBackend())
}
