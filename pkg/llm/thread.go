// Package llm drives the conversation between a completion backend and the
// local bash tool. A Thread runs one request to completion: it sends the
// conversation, executes every tool request in the response, feeds the
// results back and repeats until the model answers without requesting tools.
package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jingkaihe/skillrun/pkg/conversations"
	"github.com/jingkaihe/skillrun/pkg/logger"
	"github.com/jingkaihe/skillrun/pkg/telemetry"
	"github.com/jingkaihe/skillrun/pkg/tools"
	"github.com/jingkaihe/skillrun/pkg/usage"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
	tooltypes "github.com/jingkaihe/skillrun/pkg/types/tools"
)

var tracer = telemetry.Tracer("skillrun.llm")

// TurnState is the position of a Thread in the turn loop
type TurnState int32

const (
	StateIdle TurnState = iota
	StateAwaitingCompletion
	StateExecutingTools
	StateFinal
	StateFailed
)

func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	case StateExecutingTools:
		return "executing_tools"
	case StateFinal:
		return "final"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of a run
type Result struct {
	// Answer is the text of the final response, blocks joined by newlines
	Answer string
	// Usage is the sum across every completion call
	Usage llmtypes.Usage
	// LastUsage is the usage of the final completion call
	LastUsage      llmtypes.Usage
	Turns          int
	ToolCalls      int
	ConversationID string
	Messages       []llmtypes.Message
}

// Thread runs requests against a completer, executing tool requests with an
// executor. Run calls are serialised.
type Thread struct {
	mu sync.Mutex

	config    llmtypes.Config
	completer llmtypes.Completer
	executor  tooltypes.Executor
	handler   llmtypes.MessageHandler
	tools     []tooltypes.ToolSpec

	state        atomic.Int32
	conversation *conversations.Conversation
}

// ThreadOption configures a Thread
type ThreadOption func(*Thread)

// WithHandler sets the handler receiving text, tool use and tool result events
func WithHandler(handler llmtypes.MessageHandler) ThreadOption {
	return func(t *Thread) {
		if handler != nil {
			t.handler = handler
		}
	}
}

// NewThread creates a thread. config.MaxTurns must be positive.
func NewThread(config llmtypes.Config, completer llmtypes.Completer, executor tooltypes.Executor, opts ...ThreadOption) (*Thread, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if executor == nil {
		return nil, errors.New("executor is required")
	}
	if config.MaxTurns <= 0 {
		return nil, &llmtypes.ConfigurationError{Field: "max_turns", Reason: "must be positive"}
	}

	t := &Thread{
		config:    config,
		completer: completer,
		executor:  executor,
		handler:   llmtypes.NopMessageHandler{},
		tools:     []tooltypes.ToolSpec{tools.BashSpec()},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// State returns the current turn state
func (t *Thread) State() TurnState {
	return TurnState(t.state.Load())
}

func (t *Thread) setState(state TurnState) {
	t.state.Store(int32(state))
}

// Conversation returns the conversation of the latest run, or nil
func (t *Thread) Conversation() *conversations.Conversation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conversation
}

// Run drives a new conversation seeded with prompt until the model answers
// without requesting tools. On failure the returned Result still carries the
// usage accumulated so far.
func (t *Thread) Run(ctx context.Context, prompt string) (result *Result, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx, span := tracer.Start(ctx, "thread.run", trace.WithAttributes(
		attribute.String("provider", t.completer.Name()),
		attribute.String("model", t.config.Model),
		attribute.Int("max_turns", t.config.MaxTurns),
	))
	defer func() {
		if err != nil {
			t.setState(StateFailed)
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		if result != nil {
			span.SetAttributes(
				attribute.Int("turns", result.Turns),
				attribute.Int("tool_calls", result.ToolCalls),
				attribute.Int("input_tokens", result.Usage.InputTokens),
				attribute.Int("output_tokens", result.Usage.OutputTokens),
			)
		}
		span.End()
	}()

	conv := conversations.New(prompt)
	t.conversation = conv
	result = &Result{ConversationID: conv.ID()}

	log := logger.G(ctx).WithField("conversation_id", conv.ID())
	ctx = logger.WithLogger(ctx, log)

	for {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, "run cancelled")
		}
		if result.Turns >= t.config.MaxTurns {
			return result, errors.Wrapf(ErrTurnLimitExceeded, "no final answer after %d completion calls", result.Turns)
		}

		t.setState(StateAwaitingCompletion)
		resp, err := t.complete(ctx, conv, result.Turns+1)
		if err != nil {
			return result, err
		}

		result.Turns++
		result.LastUsage = resp.Usage
		result.Usage.Add(resp.Usage)

		for _, block := range resp.Content {
			if text, ok := block.(llmtypes.TextBlock); ok && text.Text != "" {
				t.handler.HandleText(text.Text)
			}
		}

		if err := conv.AppendAssistant(resp.Content); err != nil {
			return result, err
		}

		uses := llmtypes.ToolUses(resp.Content)
		if len(uses) == 0 {
			t.setState(StateFinal)
			result.Answer = llmtypes.JoinText(resp.Content)
			result.Messages = conv.Messages()
			t.handler.HandleDone()
			log.WithField("turns", result.Turns).WithField("summary", conv.ToSummary().String()).Debug("run finished")
			return result, nil
		}

		t.setState(StateExecutingTools)
		results := t.executeTools(ctx, uses)
		result.ToolCalls += len(results)

		if err := conv.AppendToolResults(results); err != nil {
			return result, err
		}
	}
}

func (t *Thread) complete(ctx context.Context, conv *conversations.Conversation, turn int) (*llmtypes.CompletionResponse, error) {
	ctx, span := tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("provider", t.completer.Name()),
		attribute.Int("turn", turn),
		attribute.Int("messages", conv.Len()),
	))
	defer span.End()

	start := time.Now()
	resp, err := t.completer.Complete(ctx, llmtypes.CompletionRequest{
		Model:     t.config.Model,
		Messages:  conv.Messages(),
		Tools:     t.tools,
		MaxTokens: t.config.MaxTokens,
	})
	if err != nil {
		telemetry.RecordError(ctx, err)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "completion cancelled")
		}
		if IsTransportError(err) {
			return nil, err
		}
		return nil, &TransportError{Provider: t.completer.Name(), Err: err}
	}
	if resp == nil {
		err := &TransportError{Provider: t.completer.Name(), Err: errors.New("empty completion response")}
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	usage.LogLLMUsage(ctx, resp.Usage, t.config.Model, start)
	span.SetAttributes(
		attribute.String("stop_reason", resp.StopReason),
		attribute.Int("input_tokens", resp.Usage.InputTokens),
		attribute.Int("output_tokens", resp.Usage.OutputTokens),
	)
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// executeTools runs every request sequentially in order, producing exactly
// one result per request.
func (t *Thread) executeTools(ctx context.Context, uses []llmtypes.ToolUseBlock) []llmtypes.ToolResultBlock {
	results := make([]llmtypes.ToolResultBlock, 0, len(uses))
	for _, use := range uses {
		t.handler.HandleToolUse(use.Name, describeInput(use))

		output := tools.RunTool(ctx, t.executor, use.Name, use.Input)
		logger.G(ctx).WithField("tool_use_id", use.ID).WithField("is_error", output.IsError).Debug("tool executed")

		t.handler.HandleToolResult(use.Name, output.String())
		results = append(results, llmtypes.ToolResultBlock{
			ToolUseID: use.ID,
			Output:    output.Output,
			IsError:   output.IsError,
		})
	}
	return results
}

func describeInput(use llmtypes.ToolUseBlock) string {
	if input, err := tools.DecodeBashInput(use.Input); err == nil && input.Command != "" {
		return input.Command
	}
	return string(use.Input)
}
