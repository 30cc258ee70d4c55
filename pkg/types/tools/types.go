// Package tools defines the contracts shared by the tool executor and the
// turn loop: the tool specification handed to completion backends, the
// result of one tool invocation, and the Executor interface.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// ToolSpec describes a tool capability declared to the model
type ToolSpec struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}

// Parameters returns the schema as a generic JSON object, or nil when the
// spec has no schema
func (s ToolSpec) Parameters() (map[string]any, error) {
	if s.Schema == nil {
		return nil, nil
	}
	b, err := json.Marshal(s.Schema)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal schema of tool %s", s.Name)
	}
	var parameters map[string]any
	if err := json.Unmarshal(b, &parameters); err != nil {
		return nil, errors.Wrapf(err, "failed to decode schema of tool %s", s.Name)
	}
	return parameters, nil
}

// ToolResult is the outcome of one tool invocation. It is paired with the
// originating request id by the caller.
type ToolResult struct {
	Output  string `json:"output"`
	IsError bool   `json:"is_error"`
}

// NoOutput stands in for an empty tool output. Completion APIs reject empty
// text content.
const NoOutput = "(no output)"

// String renders the result for terminal output
func (r ToolResult) String() string {
	output := r.Output
	if output == "" {
		output = NoOutput
	}
	if r.IsError {
		return fmt.Sprintf("<error>\n%s\n</error>\n", output)
	}
	return fmt.Sprintf("<result>\n%s\n</result>\n", output)
}

// Executor runs a shell command and reports its outcome. Implementations
// must never panic or return an error: every failure is reported through
// ToolResult.IsError so the model can react to it.
type Executor interface {
	Execute(ctx context.Context, command string) ToolResult
}

// ExecutorFunc adapts a plain function to the Executor interface
type ExecutorFunc func(ctx context.Context, command string) ToolResult

// Execute calls f(ctx, command)
func (f ExecutorFunc) Execute(ctx context.Context, command string) ToolResult {
	return f(ctx, command)
}

// BashToolName is the name of the single tool the model may request
const BashToolName = "bash"

// BashInput is the input of a bash tool request
type BashInput struct {
	Command string `json:"command,omitempty" jsonschema:"description=The bash command to run"`
	Restart bool   `json:"restart,omitempty" jsonschema:"description=Restart the shell session instead of running a command"`
}
