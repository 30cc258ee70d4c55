package anthropic

import (
	"strings"

	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

// ModelPricing holds the per-token pricing for different operations
type ModelPricing struct {
	Input              float64
	Output             float64
	PromptCachingWrite float64
	PromptCachingRead  float64
	ContextWindow      int
}

// ModelPricingMap maps Claude model families to their pricing information
var ModelPricingMap = map[string]ModelPricing{
	"claude-opus-4-5": {
		Input:              0.000005,   // $5.00 per million tokens
		Output:             0.000025,   // $25.00 per million tokens
		PromptCachingWrite: 0.00000625, // $6.25 per million tokens
		PromptCachingRead:  0.0000005,  // $0.50 per million tokens
		ContextWindow:      200_000,
	},
	"claude-opus-4-1": {
		Input:              0.000015,   // $15.00 per million tokens
		Output:             0.000075,   // $75.00 per million tokens
		PromptCachingWrite: 0.00001875, // $18.75 per million tokens
		PromptCachingRead:  0.0000015,  // $1.50 per million tokens
		ContextWindow:      200_000,
	},
	"claude-opus-4": {
		Input:              0.000015,
		Output:             0.000075,
		PromptCachingWrite: 0.00001875,
		PromptCachingRead:  0.0000015,
		ContextWindow:      200_000,
	},
	"claude-sonnet-4-5": {
		Input:              0.000003,   // $3.00 per million tokens
		Output:             0.000015,   // $15.00 per million tokens
		PromptCachingWrite: 0.00000375, // $3.75 per million tokens
		PromptCachingRead:  0.0000003,  // $0.30 per million tokens
		ContextWindow:      200_000,
	},
	"claude-sonnet-4": {
		Input:              0.000003,
		Output:             0.000015,
		PromptCachingWrite: 0.00000375,
		PromptCachingRead:  0.0000003,
		ContextWindow:      200_000,
	},
	"claude-haiku-4-5": {
		Input:              0.000001,   // $1.00 per million tokens
		Output:             0.000005,   // $5.00 per million tokens
		PromptCachingWrite: 0.00000125, // $1.25 per million tokens
		PromptCachingRead:  0.0000001,  // $0.10 per million tokens
		ContextWindow:      200_000,
	},
	"claude-3-7-sonnet": {
		Input:              0.000003,
		Output:             0.000015,
		PromptCachingWrite: 0.00000375,
		PromptCachingRead:  0.0000003,
		ContextWindow:      200_000,
	},
	"claude-3-5-haiku": {
		Input:              0.0000008,  // $0.80 per million tokens
		Output:             0.000004,   // $4.00 per million tokens
		PromptCachingWrite: 0.000001,   // $1.00 per million tokens
		PromptCachingRead:  0.00000008, // $0.08 per million tokens
		ContextWindow:      200_000,
	},
}

// families is ModelPricingMap's keys, most specific first
var families = []string{
	"claude-opus-4-5",
	"claude-opus-4-1",
	"claude-opus-4",
	"claude-sonnet-4-5",
	"claude-sonnet-4",
	"claude-haiku-4-5",
	"claude-3-7-sonnet",
	"claude-3-5-haiku",
}

// PricingFor finds the pricing of a model by family. It matches both
// Anthropic model ids and Bedrock ids such as
// us.anthropic.claude-sonnet-4-5-20250929-v1:0.
func PricingFor(model string) (ModelPricing, bool) {
	lowerModel := strings.ToLower(model)
	for _, family := range families {
		if strings.Contains(lowerModel, family) {
			return ModelPricingMap[family], true
		}
	}
	return ModelPricing{}, false
}

// ApplyCost fills the cost fields of usage for model. Unknown models are
// left without costs.
func ApplyCost(model string, usage *llmtypes.Usage) {
	pricing, ok := PricingFor(model)
	if !ok {
		return
	}
	usage.InputCost = float64(usage.InputTokens) * pricing.Input
	usage.OutputCost = float64(usage.OutputTokens) * pricing.Output
	usage.CacheCreationCost = float64(usage.CacheCreationInputTokens) * pricing.PromptCachingWrite
	usage.CacheReadCost = float64(usage.CacheReadInputTokens) * pricing.PromptCachingRead
}
