package llm

import (
	"strings"
	"time"
)

// Provider names accepted in Config.Provider
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderBedrock   = "bedrock"
)

// Config holds the configuration for one skillrun invocation. It is built
// once from viper and passed explicitly to the loader, the composer and the
// thread.
type Config struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	// MaxTurns bounds the number of completion calls in one run
	MaxTurns int `mapstructure:"max_turns" yaml:"max_turns"`

	SkillsDir string        `mapstructure:"skills_dir" yaml:"skills_dir"`
	Skills    SkillsConfig  `mapstructure:"skills" yaml:"skills"`
	Prompt    PromptConfig  `mapstructure:"prompt" yaml:"prompt"`
	Tool      ToolConfig    `mapstructure:"tool" yaml:"tool"`
	Retry     RetryConfig   `mapstructure:"retry" yaml:"retry"`
	Breaker   BreakerConfig `mapstructure:"circuit_breaker" yaml:"circuit_breaker"`
	RateLimit RateLimit     `mapstructure:"rate_limit" yaml:"rate_limit"`

	// RequestTimeout bounds a single HTTP request to the backend; 0 means no timeout
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	Anthropic AnthropicConfig `mapstructure:"anthropic" yaml:"anthropic"`
	OpenAI    OpenAIConfig    `mapstructure:"openai" yaml:"openai"`
	Google    GoogleConfig    `mapstructure:"google" yaml:"google"`
	Bedrock   BedrockConfig   `mapstructure:"bedrock" yaml:"bedrock"`

	Profile  string                   `mapstructure:"profile" yaml:"profile,omitempty"`
	Profiles map[string]ProfileConfig `mapstructure:"profiles" yaml:"profiles,omitempty"`
}

// ProfileConfig is a free-form set of overrides merged on top of Config
type ProfileConfig map[string]any

// SkillsConfig controls which skills are loaded
type SkillsConfig struct {
	// Allowed holds glob patterns over skill names; empty means all skills
	Allowed []string `mapstructure:"allowed" yaml:"allowed,omitempty"`
}

// PromptConfig controls prompt composition
type PromptConfig struct {
	// Template is a path to a file overriding the embedded skills template
	Template string `mapstructure:"template" yaml:"template,omitempty"`
}

// ToolConfig configures the bash executor
type ToolConfig struct {
	Shell string `mapstructure:"shell" yaml:"shell"`
	// Timeout bounds one command; 0 means no timeout
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// WorkingDir is where commands run; empty means the process working directory
	WorkingDir string `mapstructure:"working_dir" yaml:"working_dir,omitempty"`
}

// RetryConfig configures retries of failed completion requests
type RetryConfig struct {
	Attempts     int    `mapstructure:"attempts" yaml:"attempts"`           // total attempts, 1 disables retry
	InitialDelay int    `mapstructure:"initial_delay" yaml:"initial_delay"` // milliseconds
	MaxDelay     int    `mapstructure:"max_delay" yaml:"max_delay"`         // milliseconds
	BackoffType  string `mapstructure:"backoff_type" yaml:"backoff_type"`   // "fixed" or "exponential"
}

// DefaultRetryConfig performs a single attempt
var DefaultRetryConfig = RetryConfig{
	Attempts:     1,
	InitialDelay: 1000,
	MaxDelay:     10000,
	BackoffType:  "exponential",
}

// BreakerConfig configures the circuit breaker around the completer
type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxFailures uint32        `mapstructure:"max_failures" yaml:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
}

// RateLimit throttles completion requests; zero RequestsPerMinute disables it
type RateLimit struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

// AnthropicConfig holds Anthropic API settings
type AnthropicConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	// Model is used when the top-level model is unset
	Model string `mapstructure:"model" yaml:"model,omitempty"`
}

// OpenAIConfig holds settings for OpenAI and OpenAI-compatible APIs
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	// Preset selects a known OpenAI-compatible provider: openai, xai or groq
	Preset string `mapstructure:"preset" yaml:"preset,omitempty"`
}

// GoogleConfig holds Gemini API / Vertex AI settings
type GoogleConfig struct {
	Backend  string `mapstructure:"backend" yaml:"backend,omitempty"` // "gemini" or "vertexai"
	APIKey   string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Project  string `mapstructure:"project" yaml:"project,omitempty"`
	Location string `mapstructure:"location" yaml:"location,omitempty"`
}

// ResolvedBackend returns the configured backend, falling back to vertexai
// when only a project is set and to gemini otherwise.
func (g GoogleConfig) ResolvedBackend() string {
	if g.Backend != "" {
		return strings.ToLower(g.Backend)
	}
	if g.APIKey == "" && g.Project != "" {
		return "vertexai"
	}
	return "gemini"
}

// BedrockConfig holds AWS Bedrock settings; credentials come from the AWS chain
type BedrockConfig struct {
	Region string `mapstructure:"region" yaml:"region,omitempty"`
}
