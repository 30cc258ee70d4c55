package google

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/jingkaihe/skillrun/pkg/tools"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
	tooltypes "github.com/jingkaihe/skillrun/pkg/types/tools"
)

func TestNewConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config llmtypes.GoogleConfig
		field  string
	}{
		{"gemini without key", llmtypes.GoogleConfig{}, "google.api_key"},
		{"vertex without project", llmtypes.GoogleConfig{Backend: "vertexai"}, "google.project"},
		{"unknown backend", llmtypes.GoogleConfig{Backend: "other"}, "google.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.config, nil)
			var cfgErr *llmtypes.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestNewGemini(t *testing.T) {
	completer, err := New(context.Background(), llmtypes.GoogleConfig{APIKey: "test-key"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "google", completer.Name())
	assert.Equal(t, "gemini", completer.backend)
}

func TestToTools(t *testing.T) {
	assert.Nil(t, ToTools(nil))

	out := ToTools([]tooltypes.ToolSpec{tools.BashSpec()})
	require.Len(t, out, 1)
	require.Len(t, out[0].FunctionDeclarations, 1)

	decl := out[0].FunctionDeclarations[0]
	assert.Equal(t, "bash", decl.Name)
	require.NotNil(t, decl.Parameters)
	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
	require.Contains(t, decl.Parameters.Properties, "command")
	assert.Equal(t, genai.TypeString, decl.Parameters.Properties["command"].Type)
	assert.Equal(t, genai.TypeBoolean, decl.Parameters.Properties["restart"].Type)
}

func TestToContents(t *testing.T) {
	contents := ToContents([]llmtypes.Message{
		llmtypes.NewUserMessage("prompt"),
		llmtypes.NewAssistantMessage(
			llmtypes.TextBlock{Text: "checking"},
			llmtypes.ToolUseBlock{ID: "call_1", Name: "bash", Input: json.RawMessage(`{"command":"ls"}`)},
		),
		llmtypes.NewToolResultMessage(
			llmtypes.ToolResultBlock{ToolUseID: "call_1", Output: "failed", IsError: true},
		),
	})

	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "prompt", contents[0].Parts[0].Text)

	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[1].Parts, 2)
	call := contents[1].Parts[1].FunctionCall
	require.NotNil(t, call)
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "ls", call.Args["command"])

	assert.Equal(t, "user", contents[2].Role)
	response := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, response)
	assert.Equal(t, "bash", response.Name)
	assert.Equal(t, "call_1", response.ID)
	assert.Equal(t, "failed", response.Response["error"])
}

func TestFromResponse(t *testing.T) {
	response := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{
				Role: "model",
				Parts: []*genai.Part{
					{Text: "thinking...", Thought: true},
					{Text: "Let me look."},
					{FunctionCall: &genai.FunctionCall{Name: "bash", Args: map[string]any{"command": "git log"}}},
					{FunctionCall: &genai.FunctionCall{ID: "given", Name: "bash", Args: map[string]any{"command": "pwd"}}},
				},
			},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     1_000_000,
			CandidatesTokenCount: 1_000_000,
		},
	}

	resp := FromResponse(response)
	require.Len(t, resp.Content, 3)
	assert.Equal(t, llmtypes.TextBlock{Text: "Let me look."}, resp.Content[0])

	first := resp.Content[1].(llmtypes.ToolUseBlock)
	assert.True(t, strings.HasPrefix(first.ID, "call_"))
	assert.JSONEq(t, `{"command":"git log"}`, string(first.Input))
	assert.Equal(t, "given", resp.Content[2].(llmtypes.ToolUseBlock).ID)

	assert.Equal(t, "STOP", resp.StopReason)
	ApplyCost("gemini-2.5-flash", &resp.Usage)
	assert.InDelta(t, 0.30, resp.Usage.InputCost, 1e-9)
	assert.InDelta(t, 2.50, resp.Usage.OutputCost, 1e-9)
}

func TestPricingFor(t *testing.T) {
	pricing, ok := PricingFor("gemini-2.5-flash-lite-preview")
	require.True(t, ok)
	assert.Equal(t, ModelPricingMap["gemini-2.5-flash-lite"], pricing)

	_, ok = PricingFor("unknown")
	assert.False(t, ok)

	usage := llmtypes.Usage{InputTokens: 300_000, OutputTokens: 1000}
	ApplyCost("gemini-2.5-pro", &usage)
	assert.InDelta(t, 0.75, usage.InputCost, 1e-9)
	assert.InDelta(t, 0.015, usage.OutputCost, 1e-9)
}
