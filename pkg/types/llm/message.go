package llm

import (
	"encoding/json"
	"strings"

	tooltypes "github.com/jingkaihe/skillrun/pkg/types/tools"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType tags the variants of ContentBlock
type BlockType string

const (
	BlockTypeText       BlockType = "text"
	BlockTypeToolUse    BlockType = "tool_use"
	BlockTypeToolResult BlockType = "tool_result"
)

// ContentBlock is a sealed sum type: TextBlock, ToolUseBlock or ToolResultBlock.
// Switches over it should handle all three variants.
type ContentBlock interface {
	Type() BlockType
	sealed()
}

// TextBlock is plain text emitted by either side
type TextBlock struct {
	Text string `json:"text"`
}

// ToolUseBlock is a tool invocation requested by the model
type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResultBlock answers the ToolUseBlock with the same id
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Output    string `json:"output"`
	IsError   bool   `json:"is_error"`
}

// Content is the output as sent to a backend, never empty
func (b ToolResultBlock) Content() string {
	if b.Output == "" {
		return tooltypes.NoOutput
	}
	return b.Output
}

func (TextBlock) Type() BlockType       { return BlockTypeText }
func (ToolUseBlock) Type() BlockType    { return BlockTypeToolUse }
func (ToolResultBlock) Type() BlockType { return BlockTypeToolResult }

func (TextBlock) sealed()       {}
func (ToolUseBlock) sealed()    {}
func (ToolResultBlock) sealed() {}

// Message is one turn of a conversation
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// NewUserMessage creates a user message holding a single text block
func NewUserMessage(text string) Message {
	return Message{
		Role:    RoleUser,
		Content: []ContentBlock{TextBlock{Text: text}},
	}
}

// NewAssistantMessage creates an assistant message from response blocks
func NewAssistantMessage(blocks ...ContentBlock) Message {
	return Message{
		Role:    RoleAssistant,
		Content: blocks,
	}
}

// NewToolResultMessage creates the user message that reports tool results
func NewToolResultMessage(results ...ToolResultBlock) Message {
	blocks := make([]ContentBlock, len(results))
	for i, r := range results {
		blocks[i] = r
	}
	return Message{
		Role:    RoleUser,
		Content: blocks,
	}
}

// ToolUses returns the tool-use blocks of the message in emission order
func (m Message) ToolUses() []ToolUseBlock {
	return ToolUses(m.Content)
}

// Text joins the text blocks of the message with newlines
func (m Message) Text() string {
	return JoinText(m.Content)
}

// ToolUses filters the tool-use blocks out of blocks, preserving order
func ToolUses(blocks []ContentBlock) []ToolUseBlock {
	var uses []ToolUseBlock
	for _, block := range blocks {
		if use, ok := block.(ToolUseBlock); ok {
			uses = append(uses, use)
		}
	}
	return uses
}

// JoinText concatenates the text blocks with newlines
func JoinText(blocks []ContentBlock) string {
	var parts []string
	for _, block := range blocks {
		if text, ok := block.(TextBlock); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
