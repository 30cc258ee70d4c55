package llm

import "strings"

// MessageHandler receives the events of a run for presentation
type MessageHandler interface {
	HandleText(text string)
	HandleToolUse(toolName string, input string)
	HandleToolResult(toolName string, result string)
	HandleDone()
}

// StringCollectorHandler collects text responses into a string
type StringCollectorHandler struct {
	text strings.Builder
}

func (h *StringCollectorHandler) HandleText(text string) {
	h.text.WriteString(text)
	h.text.WriteString("\n")
}

func (h *StringCollectorHandler) HandleToolUse(string, string)    {}
func (h *StringCollectorHandler) HandleToolResult(string, string) {}
func (h *StringCollectorHandler) HandleDone()                     {}

func (h *StringCollectorHandler) CollectedText() string {
	return h.text.String()
}

// NopMessageHandler discards every event
type NopMessageHandler struct{}

func (NopMessageHandler) HandleText(string)               {}
func (NopMessageHandler) HandleToolUse(string, string)    {}
func (NopMessageHandler) HandleToolResult(string, string) {}
func (NopMessageHandler) HandleDone()                     {}
