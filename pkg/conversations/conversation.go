// Package conversations holds the ordered message history exchanged with the
// model during one user request. A Conversation lives in memory only and is
// discarded when the request finishes.
package conversations

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

// summaryLength is the maximum number of characters of the first message
// kept in a Summary
const summaryLength = 100

// ErrInvalidTurn is returned when an append would break the turn invariants
var ErrInvalidTurn = errors.New("invalid conversation turn")

// Conversation is an append-only, strictly alternating sequence of messages.
// The first message is always the user message carrying the composed prompt.
// It is not safe for concurrent mutation.
type Conversation struct {
	id        string
	createdAt time.Time
	messages  []llmtypes.Message
}

// Summary provides a brief overview of a conversation
type Summary struct {
	ID           string    `json:"id"`
	MessageCount int       `json:"messageCount"`
	ToolCalls    int       `json:"toolCalls"`
	FirstMessage string    `json:"firstMessage"`
	CreatedAt    time.Time `json:"createdAt"`
}

// New starts a conversation with a single user message holding prompt
func New(prompt string) *Conversation {
	return &Conversation{
		id:        GenerateID(),
		createdAt: time.Now(),
		messages:  []llmtypes.Message{llmtypes.NewUserMessage(prompt)},
	}
}

// GenerateID creates a unique identifier for a conversation
func GenerateID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	return timestamp + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// ID returns the conversation id
func (c *Conversation) ID() string {
	return c.id
}

// Len returns the number of messages
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Messages returns a copy of the message history
func (c *Conversation) Messages() []llmtypes.Message {
	out := make([]llmtypes.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Last returns the most recent message
func (c *Conversation) Last() llmtypes.Message {
	return c.messages[len(c.messages)-1]
}

// AppendAssistant appends the model's response verbatim. The previous
// message must be a user message.
func (c *Conversation) AppendAssistant(blocks []llmtypes.ContentBlock) error {
	if c.Last().Role != llmtypes.RoleUser {
		return errors.Wrap(ErrInvalidTurn, "assistant message must follow a user message")
	}
	for _, block := range blocks {
		if _, ok := block.(llmtypes.ToolResultBlock); ok {
			return errors.Wrap(ErrInvalidTurn, "assistant message cannot carry tool results")
		}
	}

	content := make([]llmtypes.ContentBlock, len(blocks))
	copy(content, blocks)
	c.messages = append(c.messages, llmtypes.NewAssistantMessage(content...))
	return nil
}

// AppendToolResults appends a user message reporting results. Every result
// must answer a tool-use block of the immediately preceding assistant turn,
// each at most once.
func (c *Conversation) AppendToolResults(results []llmtypes.ToolResultBlock) error {
	last := c.Last()
	if last.Role != llmtypes.RoleAssistant {
		return errors.Wrap(ErrInvalidTurn, "tool results must follow an assistant message")
	}
	if len(results) == 0 {
		return errors.Wrap(ErrInvalidTurn, "no tool results to append")
	}

	pending := make(map[string]bool)
	for _, use := range last.ToolUses() {
		pending[use.ID] = true
	}
	for _, result := range results {
		if !pending[result.ToolUseID] {
			return errors.Wrapf(ErrInvalidTurn, "tool result %q does not answer a pending tool use", result.ToolUseID)
		}
		delete(pending, result.ToolUseID)
	}

	c.messages = append(c.messages, llmtypes.NewToolResultMessage(results...))
	return nil
}

// ToSummary converts the conversation into a Summary
func (c *Conversation) ToSummary() Summary {
	toolCalls := 0
	for _, msg := range c.messages {
		toolCalls += len(msg.ToolUses())
	}

	firstMessage := c.messages[0].Text()
	if runes := []rune(firstMessage); len(runes) > summaryLength {
		firstMessage = string(runes[:summaryLength-3]) + "..."
	}

	return Summary{
		ID:           c.id,
		MessageCount: len(c.messages),
		ToolCalls:    toolCalls,
		FirstMessage: firstMessage,
		CreatedAt:    c.createdAt,
	}
}

// String implements fmt.Stringer for logging
func (s Summary) String() string {
	return fmt.Sprintf("conversation %s: %d messages, %d tool calls", s.ID, s.MessageCount, s.ToolCalls)
}
