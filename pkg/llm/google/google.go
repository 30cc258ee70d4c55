// Package google implements the completion backend for Google's GenAI
// models, supporting both the Gemini API and Vertex AI.
package google

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/jingkaihe/skillrun/pkg/logger"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
	tooltypes "github.com/jingkaihe/skillrun/pkg/types/tools"
)

// ProviderName identifies this backend
const ProviderName = llmtypes.ProviderGoogle

// Completer sends completion requests through the GenAI SDK
type Completer struct {
	client  *genai.Client
	backend string
}

// New creates a Google completer for the Gemini API or Vertex AI
func New(ctx context.Context, config llmtypes.GoogleConfig, httpClient *http.Client) (*Completer, error) {
	backend := config.ResolvedBackend()

	clientConfig := &genai.ClientConfig{HTTPClient: httpClient}
	switch backend {
	case "vertexai":
		if config.Project == "" {
			return nil, &llmtypes.ConfigurationError{Field: "google.project", Reason: "required for the vertexai backend"}
		}
		clientConfig.Backend = genai.BackendVertexAI
		clientConfig.Project = config.Project
		clientConfig.Location = config.Location
	case "gemini":
		if config.APIKey == "" {
			return nil, &llmtypes.ConfigurationError{Field: "google.api_key", Reason: "GEMINI_API_KEY or GOOGLE_API_KEY is not set"}
		}
		clientConfig.Backend = genai.BackendGeminiAPI
		clientConfig.APIKey = config.APIKey
	default:
		return nil, &llmtypes.ConfigurationError{Field: "google.backend", Reason: "unknown backend " + backend}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Google GenAI client")
	}

	return &Completer{client: client, backend: backend}, nil
}

func (c *Completer) Name() string {
	return ProviderName
}

// Complete issues one GenerateContent request
func (c *Completer) Complete(ctx context.Context, req llmtypes.CompletionRequest) (*llmtypes.CompletionResponse, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
		Tools:           ToTools(req.Tools),
	}

	response, err := c.client.Models.GenerateContent(ctx, req.Model, ToContents(req.Messages), config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate content")
	}
	if len(response.Candidates) == 0 {
		return nil, errors.New("no candidates returned")
	}

	resp := FromResponse(response)
	ApplyCost(req.Model, &resp.Usage)

	logger.G(ctx).
		WithField("backend", c.backend).
		WithField("finish_reason", resp.StopReason).
		WithField("input_tokens", resp.Usage.InputTokens).
		WithField("output_tokens", resp.Usage.OutputTokens).
		Debug("google content generated")

	return resp, nil
}

// IsRetryable treats rate limiting, server errors and transport failures as
// transient.
func (c *Completer) IsRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Code >= 500
	}
	return true
}

// ToTools groups every tool under a single genai.Tool, which is how the
// API expects function declarations.
func ToTools(specs []tooltypes.ToolSpec) []*genai.Tool {
	if len(specs) == 0 {
		return nil
	}

	declarations := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		declaration := &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
		}
		if spec.Schema != nil {
			declaration.Parameters = convertSchema(spec.Schema)
		}
		declarations = append(declarations, declaration)
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func convertSchema(schema *jsonschema.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:        convertSchemaType(schema.Type),
		Description: schema.Description,
	}

	if schema.Properties != nil {
		out.Properties = make(map[string]*genai.Schema)
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			out.Properties[pair.Key] = convertSchema(pair.Value)
		}
	}
	if len(schema.Required) > 0 {
		out.Required = schema.Required
	}
	if schema.Items != nil {
		out.Items = convertSchema(schema.Items)
	}
	return out
}

func convertSchemaType(schemaType string) genai.Type {
	switch strings.ToLower(schemaType) {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// ToContents converts the conversation. Function responses carry the name
// of the call they answer, looked up from the preceding model turn.
func ToContents(messages []llmtypes.Message) []*genai.Content {
	names := make(map[string]string)
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		parts := make([]*genai.Part, 0, len(msg.Content))
		for _, block := range msg.Content {
			switch b := block.(type) {
			case llmtypes.TextBlock:
				if b.Text == "" {
					continue
				}
				parts = append(parts, genai.NewPartFromText(b.Text))
			case llmtypes.ToolUseBlock:
				names[b.ID] = b.Name
				var args map[string]any
				_ = json.Unmarshal(b.Input, &args)
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: b.ID, Name: b.Name, Args: args},
				})
			case llmtypes.ToolResultBlock:
				response := map[string]any{"output": b.Content()}
				if b.IsError {
					response = map[string]any{"error": b.Content()}
				}
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       b.ToolUseID,
						Name:     names[b.ToolUseID],
						Response: response,
					},
				})
			}
		}

		role := genai.Role(genai.RoleUser)
		if msg.Role == llmtypes.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents
}

// FromResponse converts the first candidate. Thought parts are dropped and
// function calls without an id are assigned one.
func FromResponse(response *genai.GenerateContentResponse) *llmtypes.CompletionResponse {
	candidate := response.Candidates[0]
	resp := &llmtypes.CompletionResponse{
		StopReason: string(candidate.FinishReason),
	}

	if usage := response.UsageMetadata; usage != nil {
		resp.Usage = llmtypes.Usage{
			InputTokens:          int(usage.PromptTokenCount - usage.CachedContentTokenCount),
			OutputTokens:         int(usage.CandidatesTokenCount + usage.ThoughtsTokenCount),
			CacheReadInputTokens: int(usage.CachedContentTokenCount),
		}
	}

	if candidate.Content == nil {
		return resp
	}
	for _, part := range candidate.Content.Parts {
		switch {
		case part.Thought:
			continue
		case part.FunctionCall != nil:
			id := part.FunctionCall.ID
			if id == "" {
				id = "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
			}
			input, err := json.Marshal(part.FunctionCall.Args)
			if err != nil || part.FunctionCall.Args == nil {
				input = []byte("{}")
			}
			resp.Content = append(resp.Content, llmtypes.ToolUseBlock{
				ID:    id,
				Name:  part.FunctionCall.Name,
				Input: input,
			})
		case part.Text != "":
			resp.Content = append(resp.Content, llmtypes.TextBlock{Text: part.Text})
		}
	}
	return resp
}
