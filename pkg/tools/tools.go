// Package tools implements the single shell tool the model may request and
// dispatches tool-use blocks to an Executor.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jingkaihe/skillrun/pkg/logger"
	"github.com/jingkaihe/skillrun/pkg/telemetry"
	tooltypes "github.com/jingkaihe/skillrun/pkg/types/tools"
)

// RestartedMessage is returned for a restart request
const RestartedMessage = "tool has been restarted."

const bashDescription = `Executes a shell command in the current working directory and returns its output.

* On success the standard output of the command is returned.
* On a non-zero exit status the standard error is returned and the result is flagged as an error.
* Commands run non-interactively; do not run commands that wait for user input.`

// GenerateSchema generates a JSON schema for the given type
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T

	return reflector.Reflect(v)
}

// BashSpec describes the bash tool declared to every completion backend
func BashSpec() tooltypes.ToolSpec {
	return tooltypes.ToolSpec{
		Name:        tooltypes.BashToolName,
		Description: bashDescription,
		Schema:      GenerateSchema[tooltypes.BashInput](),
	}
}

// DecodeBashInput decodes the input of a bash tool request. A request must
// either carry a command or ask for a restart.
func DecodeBashInput(raw json.RawMessage) (tooltypes.BashInput, error) {
	var input tooltypes.BashInput
	if len(raw) == 0 {
		return input, errors.New("missing tool input")
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return input, errors.Wrap(err, "invalid tool input")
	}
	if input.Command == "" && !input.Restart {
		return input, errors.New("command is required")
	}
	return input, nil
}

var (
	tracer = telemetry.Tracer("skillrun.tools")
)

// RunTool executes one tool request. It never fails: an unsupported tool
// name, malformed input and execution failures are all returned as error
// results so the model can react to them.
func RunTool(ctx context.Context, executor tooltypes.Executor, toolName string, input json.RawMessage) tooltypes.ToolResult {
	ctx, span := tracer.Start(
		ctx,
		"tool.execute",
		trace.WithAttributes(attribute.String("tool.name", toolName)),
	)
	defer span.End()

	result := runTool(ctx, executor, toolName, input, span)

	if result.IsError {
		span.SetStatus(codes.Error, result.Output)
		span.RecordError(errors.New(result.Output))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return result
}

func runTool(ctx context.Context, executor tooltypes.Executor, toolName string, raw json.RawMessage, span trace.Span) tooltypes.ToolResult {
	if toolName != tooltypes.BashToolName {
		return tooltypes.ToolResult{
			Output:  fmt.Sprintf("Error: unsupported tool %q", toolName),
			IsError: true,
		}
	}

	input, err := DecodeBashInput(raw)
	if err != nil {
		return tooltypes.ToolResult{
			Output:  fmt.Sprintf("Error: %v", err),
			IsError: true,
		}
	}

	if input.Restart {
		logger.G(ctx).Debug("bash tool restart requested")
		return tooltypes.ToolResult{Output: RestartedMessage}
	}

	span.SetAttributes(attribute.String("command", input.Command))
	return executor.Execute(ctx, input.Command)
}
