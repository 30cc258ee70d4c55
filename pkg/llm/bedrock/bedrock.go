// Package bedrock implements the completion backend for AWS Bedrock through
// the Converse API. Credentials come from the default AWS chain.
package bedrock

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillrun/pkg/llm/anthropic"
	"github.com/jingkaihe/skillrun/pkg/logger"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
	tooltypes "github.com/jingkaihe/skillrun/pkg/types/tools"
)

// ProviderName identifies this backend
const ProviderName = llmtypes.ProviderBedrock

// DefaultRegion is used when no region is configured
const DefaultRegion = "us-east-1"

// converseAPI is the subset of the Bedrock runtime client in use
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Completer sends completion requests to the Bedrock Converse API
type Completer struct {
	client converseAPI
}

// New creates a Bedrock completer. SDK retries are disabled; retries are
// configured around the completer.
func New(ctx context.Context, config llmtypes.BedrockConfig, httpClient *http.Client) (*Completer, error) {
	region := config.Region
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMaxAttempts(1),
	}
	if httpClient != nil {
		opts = append(opts, awsconfig.WithHTTPClient(httpClient))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}

	return &Completer{client: bedrockruntime.NewFromConfig(awsCfg)}, nil
}

func newWithClient(client converseAPI) *Completer {
	return &Completer{client: client}
}

func (c *Completer) Name() string {
	return ProviderName
}

// Complete issues one Converse request
func (c *Completer) Complete(ctx context.Context, req llmtypes.CompletionRequest) (*llmtypes.CompletionResponse, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(req.Model),
		Messages: ToMessages(req.Messages),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens: aws.Int32(int32(req.MaxTokens)),
		},
	}
	if len(req.Tools) > 0 {
		toolConfig, err := ToToolConfig(req.Tools)
		if err != nil {
			return nil, err
		}
		input.ToolConfig = toolConfig
	}

	output, err := c.client.Converse(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "failed to converse")
	}

	resp := FromOutput(output)
	anthropic.ApplyCost(req.Model, &resp.Usage)

	logger.G(ctx).
		WithField("stop_reason", resp.StopReason).
		WithField("input_tokens", resp.Usage.InputTokens).
		WithField("output_tokens", resp.Usage.OutputTokens).
		Debug("bedrock converse completed")

	return resp, nil
}

// IsRetryable treats throttling and service-side failures as transient;
// other API errors such as validation or access denied are permanent.
func (c *Completer) IsRetryable(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "ServiceUnavailableException",
			"InternalServerException", "ModelNotReadyException", "ModelTimeoutException":
			return true
		default:
			return false
		}
	}
	return true
}

// ToToolConfig declares every tool with its JSON schema
func ToToolConfig(specs []tooltypes.ToolSpec) (*types.ToolConfiguration, error) {
	tools := make([]types.Tool, 0, len(specs))
	for _, spec := range specs {
		schema, err := spec.Parameters()
		if err != nil {
			return nil, err
		}
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}

		tools = append(tools, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(spec.Name),
				Description: aws.String(spec.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(schema),
				},
			},
		})
	}
	return &types.ToolConfiguration{Tools: tools}, nil
}

// ToMessages converts the conversation. Empty text blocks are dropped.
func ToMessages(messages []llmtypes.Message) []types.Message {
	out := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		converted := types.Message{Role: types.ConversationRoleUser}
		if msg.Role == llmtypes.RoleAssistant {
			converted.Role = types.ConversationRoleAssistant
		}

		for _, block := range msg.Content {
			switch b := block.(type) {
			case llmtypes.TextBlock:
				if b.Text == "" {
					continue
				}
				converted.Content = append(converted.Content, &types.ContentBlockMemberText{Value: b.Text})
			case llmtypes.ToolUseBlock:
				var input map[string]any
				if err := json.Unmarshal(b.Input, &input); err != nil {
					logger.L.WithError(err).WithField("tool_use_id", b.ID).Warn("tool input is not a JSON object, sending an empty one")
				}
				if input == nil {
					input = map[string]any{}
				}
				converted.Content = append(converted.Content, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(b.ID),
						Name:      aws.String(b.Name),
						Input:     document.NewLazyDocument(input),
					},
				})
			case llmtypes.ToolResultBlock:
				result := types.ToolResultBlock{
					ToolUseId: aws.String(b.ToolUseID),
					Content: []types.ToolResultContentBlock{
						&types.ToolResultContentBlockMemberText{Value: b.Content()},
					},
				}
				if b.IsError {
					result.Status = types.ToolResultStatusError
				}
				converted.Content = append(converted.Content, &types.ContentBlockMemberToolResult{Value: result})
			}
		}
		out = append(out, converted)
	}
	return out
}

// FromOutput converts a Converse response, preserving block order
func FromOutput(output *bedrockruntime.ConverseOutput) *llmtypes.CompletionResponse {
	resp := &llmtypes.CompletionResponse{StopReason: string(output.StopReason)}
	if output.Usage != nil {
		resp.Usage = llmtypes.Usage{
			InputTokens:  int(aws.ToInt32(output.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(output.Usage.OutputTokens)),
		}
	}

	message, ok := output.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return resp
	}
	for _, block := range message.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			resp.Content = append(resp.Content, llmtypes.TextBlock{Text: b.Value})
		case *types.ContentBlockMemberToolUse:
			resp.Content = append(resp.Content, llmtypes.ToolUseBlock{
				ID:    aws.ToString(b.Value.ToolUseId),
				Name:  aws.ToString(b.Value.Name),
				Input: marshalDocument(b.Value.Input),
			})
		}
	}
	return resp
}

func marshalDocument(doc document.Interface) json.RawMessage {
	if doc == nil {
		return json.RawMessage("{}")
	}
	var v any
	if err := doc.UnmarshalSmithyDocument(&v); err != nil {
		return json.RawMessage("{}")
	}
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return json.RawMessage("{}")
	}
	return data
}
