package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageToolUsesPreservesOrder(t *testing.T) {
	msg := NewAssistantMessage(
		TextBlock{Text: "Let me look."},
		ToolUseBlock{ID: "toolu_1", Name: "bash", Input: json.RawMessage(`{"command":"ls"}`)},
		TextBlock{Text: "And also"},
		ToolUseBlock{ID: "toolu_2", Name: "bash", Input: json.RawMessage(`{"command":"pwd"}`)},
	)

	uses := msg.ToolUses()
	require.Len(t, uses, 2)
	assert.Equal(t, "toolu_1", uses[0].ID)
	assert.Equal(t, "toolu_2", uses[1].ID)
	assert.Equal(t, "Let me look.\nAnd also", msg.Text())
}

func TestMessageWithoutToolUses(t *testing.T) {
	msg := NewUserMessage("hello")
	assert.Empty(t, msg.ToolUses())
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "hello", msg.Text())
}

func TestNewToolResultMessage(t *testing.T) {
	msg := NewToolResultMessage(
		ToolResultBlock{ToolUseID: "a", Output: "one"},
		ToolResultBlock{ToolUseID: "b", Output: "two", IsError: true},
	)

	assert.Equal(t, RoleUser, msg.Role)
	require.Len(t, msg.Content, 2)
	for i, id := range []string{"a", "b"} {
		block, ok := msg.Content[i].(ToolResultBlock)
		require.True(t, ok)
		assert.Equal(t, id, block.ToolUseID)
	}
	assert.Empty(t, msg.Text())
}

func TestToolResultBlockContent(t *testing.T) {
	assert.Equal(t, "ok", ToolResultBlock{Output: "ok"}.Content())
	assert.Equal(t, "(no output)", ToolResultBlock{}.Content())
	assert.Equal(t, "(no output)", ToolResultBlock{IsError: true}.Content())
}

func TestBlockTypes(t *testing.T) {
	assert.Equal(t, BlockTypeText, TextBlock{}.Type())
	assert.Equal(t, BlockTypeToolUse, ToolUseBlock{}.Type())
	assert.Equal(t, BlockTypeToolResult, ToolResultBlock{}.Type())
}

func TestUsageAdd(t *testing.T) {
	total := Usage{}
	total.Add(Usage{InputTokens: 10, OutputTokens: 5, InputCost: 0.1})
	total.Add(Usage{InputTokens: 3, OutputTokens: 2, CacheReadInputTokens: 1, OutputCost: 0.2})

	assert.Equal(t, 13, total.InputTokens)
	assert.Equal(t, 7, total.OutputTokens)
	assert.Equal(t, 21, total.TotalTokens())
	assert.InDelta(t, 0.3, total.TotalCost(), 1e-9)
}

func TestStringCollectorHandler(t *testing.T) {
	handler := &StringCollectorHandler{}
	handler.HandleText("first")
	handler.HandleToolUse("bash", "ls")
	handler.HandleToolResult("bash", "file")
	handler.HandleText("second")
	handler.HandleDone()

	assert.Equal(t, "first\nsecond\n", handler.CollectedText())
}
