package llm

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillrun/pkg/llm/anthropic"
	"github.com/jingkaihe/skillrun/pkg/llm/bedrock"
	"github.com/jingkaihe/skillrun/pkg/llm/google"
	"github.com/jingkaihe/skillrun/pkg/llm/openai"
	"github.com/jingkaihe/skillrun/pkg/logger"
	"github.com/jingkaihe/skillrun/pkg/sysprompt"
	"github.com/jingkaihe/skillrun/pkg/tools"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
	tooltypes "github.com/jingkaihe/skillrun/pkg/types/tools"
)

// NewCompleterFromConfig creates the backend selected by config.Provider,
// wrapped with the rate limiter, circuit breaker and retry policy. Each
// wrapper is a no-op unless configured.
func NewCompleterFromConfig(ctx context.Context, config llmtypes.Config) (llmtypes.Completer, error) {
	httpClient := NewHTTPClient(config.RequestTimeout)

	var (
		backend llmtypes.Completer
		err     error
	)
	switch config.Provider {
	case llmtypes.ProviderAnthropic:
		backend, err = anthropic.New(config.Anthropic, httpClient)
	case llmtypes.ProviderOpenAI:
		backend, err = openai.New(config.OpenAI, httpClient)
	case llmtypes.ProviderGoogle:
		backend, err = google.New(ctx, config.Google, httpClient)
	case llmtypes.ProviderBedrock:
		backend, err = bedrock.New(ctx, config.Bedrock, httpClient)
	default:
		return nil, &llmtypes.ConfigurationError{Field: "provider", Reason: "unknown provider " + config.Provider}
	}
	if err != nil {
		return nil, err
	}

	completer := WithRateLimit(backend, config.RateLimit)
	if config.Breaker.Enabled {
		completer = WithCircuitBreaker(completer, config.Breaker)
	}
	completer = WithRetry(completer, config.Retry)

	logger.G(ctx).
		WithField("provider", config.Provider).
		WithField("model", config.Model).
		WithField("retry_attempts", config.Retry.Attempts).
		WithField("circuit_breaker", config.Breaker.Enabled).
		Debug("completer created")

	return completer, nil
}

// Client answers user requests end to end: it composes the prompt from the
// available skills and runs a fresh Thread for every request.
type Client struct {
	config    llmtypes.Config
	completer llmtypes.Completer
	executor  tooltypes.Executor
	renderer  *sysprompt.Renderer
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithCompleter replaces the completer built from the configuration
func WithCompleter(completer llmtypes.Completer) ClientOption {
	return func(c *Client) {
		c.completer = completer
	}
}

// WithExecutor replaces the bash executor built from the configuration
func WithExecutor(executor tooltypes.Executor) ClientOption {
	return func(c *Client) {
		c.executor = executor
	}
}

// NewClient validates config and builds the completer, executor and prompt
// renderer it describes.
func NewClient(ctx context.Context, config llmtypes.Config, opts ...ClientOption) (*Client, error) {
	c := &Client{config: config}
	for _, opt := range opts {
		opt(c)
	}

	if c.completer == nil {
		if err := config.Validate(); err != nil {
			return nil, err
		}
		completer, err := NewCompleterFromConfig(ctx, config)
		if err != nil {
			return nil, err
		}
		c.completer = completer
	}
	if c.executor == nil {
		c.executor = tools.NewBashExecutorFromConfig(config.Tool)
	}

	renderer, err := sysprompt.NewRendererFromConfig(config.Prompt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load prompt template")
	}
	c.renderer = renderer

	return c, nil
}

// Completer returns the wrapped completer in use
func (c *Client) Completer() llmtypes.Completer {
	return c.completer
}

// Prompt composes the prompt for request without contacting the model
func (c *Client) Prompt(request string, instructions map[string]string) (string, error) {
	return c.renderer.Compose(request, instructions)
}

// Ask composes the prompt for request from the skill instructions and runs
// it to a final answer. An empty instruction set fails before any completion
// call with sysprompt.ErrNoSkillsAvailable.
func (c *Client) Ask(ctx context.Context, request string, instructions map[string]string, handler llmtypes.MessageHandler) (*Result, error) {
	prompt, err := c.Prompt(request, instructions)
	if err != nil {
		return nil, err
	}

	thread, err := NewThread(c.config, c.completer, c.executor, WithHandler(handler))
	if err != nil {
		return nil, err
	}
	return thread.Run(ctx, prompt)
}
