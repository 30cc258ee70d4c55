// Package usage reports token usage and cost of completion calls.
package usage

import (
	"context"
	"math"
	"time"

	"github.com/jingkaihe/skillrun/pkg/logger"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

// LogLLMUsage logs the tokens, cost and output throughput of one completion call
func LogLLMUsage(ctx context.Context, usage llmtypes.Usage, model string, startTime time.Time) {
	fields := map[string]any{
		"model":                       model,
		"input_tokens":                usage.InputTokens,
		"output_tokens":               usage.OutputTokens,
		"cache_creation_input_tokens": usage.CacheCreationInputTokens,
		"cache_read_input_tokens":     usage.CacheReadInputTokens,
		"input_cost":                  roundToFourDecimalPlaces(usage.InputCost),
		"output_cost":                 roundToFourDecimalPlaces(usage.OutputCost),
		"cache_creation_cost":         roundToFourDecimalPlaces(usage.CacheCreationCost),
		"cache_read_cost":             roundToFourDecimalPlaces(usage.CacheReadCost),
		"total_cost":                  roundToFourDecimalPlaces(usage.TotalCost()),
		"total_tokens":                usage.TotalTokens(),
	}

	duration := time.Since(startTime)
	if duration > 0 && usage.OutputTokens > 0 {
		tokensPerSecond := float64(usage.OutputTokens) / duration.Seconds()
		fields["output_tokens/s"] = roundToFourDecimalPlaces(tokensPerSecond)
	}

	logger.G(ctx).WithFields(fields).Debug("LLM usage completed")
}

func roundToFourDecimalPlaces(value float64) float64 {
	return math.Round(value*10000) / 10000
}
