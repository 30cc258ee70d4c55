package llm

import (
	"context"

	tooltypes "github.com/jingkaihe/skillrun/pkg/types/tools"
)

// CompletionRequest is one stateless call to a completion backend. Messages
// always carries the full ordered history.
type CompletionRequest struct {
	Model     string
	Messages  []Message
	Tools     []tooltypes.ToolSpec
	MaxTokens int
}

// CompletionResponse is the model's reply to a CompletionRequest
type CompletionResponse struct {
	Content    []ContentBlock
	Usage      Usage
	StopReason string
}

// Completer is implemented by every completion backend and by the wrappers
// that decorate them (retry, circuit breaker, rate limit).
type Completer interface {
	// Name identifies the backend, e.g. "anthropic"
	Name() string
	// Complete issues a single completion request
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// RetryClassifier is optionally implemented by backends that can tell
// transient failures from permanent ones.
type RetryClassifier interface {
	IsRetryable(err error) bool
}
