// Package openai implements the completion backend for the OpenAI Chat
// Completions API and OpenAI-compatible providers such as xAI and Groq.
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/jingkaihe/skillrun/pkg/logger"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
	tooltypes "github.com/jingkaihe/skillrun/pkg/types/tools"
)

// ProviderName identifies this backend
const ProviderName = llmtypes.ProviderOpenAI

// Completer sends completion requests to a Chat Completions endpoint
type Completer struct {
	client *openai.Client
	preset Preset
}

// New creates an OpenAI completer. The API key falls back to the preset's
// environment variable. A custom base URL may be used without a key, which
// suits local OpenAI-compatible servers.
func New(config llmtypes.OpenAIConfig, httpClient *http.Client) (*Completer, error) {
	preset, ok := PresetFor(config.Preset)
	if !ok {
		return nil, &llmtypes.ConfigurationError{Field: "openai.preset", Reason: "unknown preset " + config.Preset}
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(preset.APIKeyEnv)
	}
	if apiKey == "" && config.BaseURL == "" {
		return nil, &llmtypes.ConfigurationError{Field: "openai.api_key", Reason: preset.APIKeyEnv + " is not set"}
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = preset.BaseURL
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}

	return &Completer{
		client: openai.NewClientWithConfig(clientConfig),
		preset: preset,
	}, nil
}

func (c *Completer) Name() string {
	return ProviderName
}

// Complete issues one chat completion request
func (c *Completer) Complete(ctx context.Context, req llmtypes.CompletionRequest) (*llmtypes.CompletionResponse, error) {
	tools, err := ToTools(req.Tools)
	if err != nil {
		return nil, err
	}
	request := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: ToChatMessages(req.Messages),
		Tools:    tools,
	}
	if c.preset.IsReasoning(req.Model) {
		request.MaxCompletionTokens = req.MaxTokens
	} else {
		request.MaxTokens = req.MaxTokens
	}

	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chat completion")
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("no completion choices returned")
	}

	resp := FromResponse(response)
	c.applyCost(req.Model, &resp.Usage)

	logger.G(ctx).
		WithField("finish_reason", resp.StopReason).
		WithField("input_tokens", resp.Usage.InputTokens).
		WithField("output_tokens", resp.Usage.OutputTokens).
		Debug("openai completion received")

	return resp, nil
}

// IsRetryable treats rate limiting, server errors and transport failures as
// transient.
func (c *Completer) IsRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 ||
			reqErr.HTTPStatusCode == http.StatusTooManyRequests ||
			reqErr.HTTPStatusCode >= 500
	}
	return true
}

func (c *Completer) applyCost(model string, usage *llmtypes.Usage) {
	pricing, ok := c.preset.PricingFor(model)
	if !ok {
		return
	}
	usage.InputCost = float64(usage.InputTokens) * pricing.Input
	usage.OutputCost = float64(usage.OutputTokens) * pricing.Output
	usage.CacheReadCost = float64(usage.CacheReadInputTokens) * pricing.CachedInput
}

// ToTools declares every tool as a function whose parameters are its JSON
// schema.
func ToTools(specs []tooltypes.ToolSpec) ([]openai.Tool, error) {
	tools := make([]openai.Tool, 0, len(specs))
	for _, spec := range specs {
		parameters, err := spec.Parameters()
		if err != nil {
			return nil, err
		}
		if parameters == nil {
			parameters = map[string]any{"type": "object", "properties": map[string]any{}}
		}

		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  parameters,
			},
		})
	}
	return tools, nil
}

// ToChatMessages flattens the conversation into chat messages. Each tool
// result becomes its own tool-role message, in the order it was reported.
func ToChatMessages(messages []llmtypes.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == llmtypes.RoleAssistant {
			chatMsg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Text(),
			}
			for _, use := range msg.ToolUses() {
				chatMsg.ToolCalls = append(chatMsg.ToolCalls, openai.ToolCall{
					ID:   use.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      use.Name,
						Arguments: string(use.Input),
					},
				})
			}
			out = append(out, chatMsg)
			continue
		}

		for _, block := range msg.Content {
			switch b := block.(type) {
			case llmtypes.TextBlock:
				if b.Text == "" {
					continue
				}
				out = append(out, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: b.Text,
				})
			case llmtypes.ToolResultBlock:
				content := b.Content()
				if b.IsError {
					content = "Error: " + content
				}
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    content,
					ToolCallID: b.ToolUseID,
				})
			case llmtypes.ToolUseBlock:
				panic(errors.New("user message cannot carry tool uses"))
			}
		}
	}
	return out
}

// FromResponse converts the first choice. Text precedes tool calls since the
// API reports them separately.
func FromResponse(response openai.ChatCompletionResponse) *llmtypes.CompletionResponse {
	choice := response.Choices[0]
	resp := &llmtypes.CompletionResponse{
		StopReason: string(choice.FinishReason),
		Usage: llmtypes.Usage{
			InputTokens:  response.Usage.PromptTokens,
			OutputTokens: response.Usage.CompletionTokens,
		},
	}
	if details := response.Usage.PromptTokensDetails; details != nil {
		resp.Usage.CacheReadInputTokens = details.CachedTokens
		resp.Usage.InputTokens -= details.CachedTokens
	}

	if choice.Message.Content != "" {
		resp.Content = append(resp.Content, llmtypes.TextBlock{Text: choice.Message.Content})
	}
	for _, call := range choice.Message.ToolCalls {
		input := json.RawMessage(call.Function.Arguments)
		if len(input) == 0 || !json.Valid(input) {
			input = json.RawMessage("{}")
		}
		resp.Content = append(resp.Content, llmtypes.ToolUseBlock{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: input,
		})
	}
	return resp
}
