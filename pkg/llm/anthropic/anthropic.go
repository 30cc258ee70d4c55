// Package anthropic implements the completion backend for the Anthropic
// Messages API. The bash tool is declared as Anthropic's native bash tool.
package anthropic

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillrun/pkg/logger"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
	tooltypes "github.com/jingkaihe/skillrun/pkg/types/tools"
)

// ProviderName identifies this backend
const ProviderName = llmtypes.ProviderAnthropic

// Completer sends completion requests to the Anthropic Messages API
type Completer struct {
	client anthropic.Client
}

// New creates an Anthropic completer. httpClient may be nil. SDK retries are
// disabled; retries are configured around the completer.
func New(config llmtypes.AnthropicConfig, httpClient *http.Client) (*Completer, error) {
	if config.APIKey == "" {
		return nil, &llmtypes.ConfigurationError{Field: "anthropic.api_key", Reason: "ANTHROPIC_API_KEY is not set"}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &Completer{client: anthropic.NewClient(opts...)}, nil
}

func (c *Completer) Name() string {
	return ProviderName
}

// Complete issues one Messages API request
func (c *Completer) Complete(ctx context.Context, req llmtypes.CompletionRequest) (*llmtypes.CompletionResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  ToMessageParams(req.Messages),
		Tools:     ToTools(req.Tools),
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create message")
	}

	resp := FromMessage(message)
	ApplyCost(req.Model, &resp.Usage)

	logger.G(ctx).
		WithField("stop_reason", resp.StopReason).
		WithField("input_tokens", resp.Usage.InputTokens).
		WithField("output_tokens", resp.Usage.OutputTokens).
		Debug("anthropic message received")

	return resp, nil
}

// IsRetryable reports rate limiting, overload, server errors and network
// failures as transient.
func (c *Completer) IsRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode == http.StatusConflict,
			apiErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}
	return true
}

// ToTools converts tool specs. The bash tool maps to the native
// bash_20250124 tool; anything else is declared as a custom tool.
func ToTools(specs []tooltypes.ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		if spec.Name == tooltypes.BashToolName {
			tools = append(tools, anthropic.ToolUnionParam{
				OfBashTool20250124: &anthropic.ToolBash20250124Param{},
			})
			continue
		}

		inputSchema := anthropic.ToolInputSchemaParam{}
		if spec.Schema != nil {
			inputSchema.Properties = spec.Schema.Properties
		}
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        spec.Name,
				Description: anthropic.String(spec.Description),
				InputSchema: inputSchema,
			},
		})
	}
	return tools
}

// ToMessageParams converts the conversation. Empty text blocks are dropped
// since the API rejects them.
func ToMessageParams(messages []llmtypes.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
		for _, block := range msg.Content {
			switch b := block.(type) {
			case llmtypes.TextBlock:
				if b.Text == "" {
					continue
				}
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case llmtypes.ToolUseBlock:
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, rawInput(b.Input), b.Name))
			case llmtypes.ToolResultBlock:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Content(), b.IsError))
			default:
				panic(errors.Errorf("unknown content block %T", block))
			}
		}

		if msg.Role == llmtypes.RoleAssistant {
			params = append(params, anthropic.NewAssistantMessage(blocks...))
		} else {
			params = append(params, anthropic.NewUserMessage(blocks...))
		}
	}
	return params
}

// FromMessage converts an API response, preserving block order
func FromMessage(message *anthropic.Message) *llmtypes.CompletionResponse {
	resp := &llmtypes.CompletionResponse{
		StopReason: string(message.StopReason),
		Usage: llmtypes.Usage{
			InputTokens:              int(message.Usage.InputTokens),
			OutputTokens:             int(message.Usage.OutputTokens),
			CacheCreationInputTokens: int(message.Usage.CacheCreationInputTokens),
			CacheReadInputTokens:     int(message.Usage.CacheReadInputTokens),
		},
	}

	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content = append(resp.Content, llmtypes.TextBlock{Text: variant.Text})
		case anthropic.ToolUseBlock:
			resp.Content = append(resp.Content, llmtypes.ToolUseBlock{
				ID:    variant.ID,
				Name:  variant.Name,
				Input: rawInput(json.RawMessage(variant.JSON.Input.Raw())),
			})
		}
	}
	return resp
}

func rawInput(input json.RawMessage) json.RawMessage {
	if len(input) == 0 {
		return json.RawMessage("{}")
	}
	return input
}
