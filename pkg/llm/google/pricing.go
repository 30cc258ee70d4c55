package google

import (
	"strings"

	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
)

// ModelPricing holds the per-million-token pricing in USD
type ModelPricing struct {
	Input             float64
	InputHigh         float64
	Output            float64
	OutputHigh        float64
	ContextWindow     int
	TieredPricing     bool
	HighTierThreshold int
}

// ModelPricingMap contains pricing information for Gemini models
var ModelPricingMap = map[string]ModelPricing{
	// Tiered on prompt size
	"gemini-2.5-pro": {
		Input:             1.25, // <=200K input
		InputHigh:         2.50, // >200K input
		Output:            10,
		OutputHigh:        15,
		ContextWindow:     1_048_576,
		TieredPricing:     true,
		HighTierThreshold: 200_000,
	},
	"gemini-2.5-flash": {
		Input:         0.30,
		Output:        2.50,
		ContextWindow: 1_048_576,
	},
	"gemini-2.5-flash-lite": {
		Input:         0.10,
		Output:        0.40,
		ContextWindow: 1_048_576,
	},
}

// PricingFor finds the pricing of model, preferring the longest family name
// it contains so gemini-2.5-flash-lite does not match gemini-2.5-flash.
func PricingFor(model string) (ModelPricing, bool) {
	model = strings.ToLower(model)
	if pricing, ok := ModelPricingMap[model]; ok {
		return pricing, true
	}

	best := ""
	for key := range ModelPricingMap {
		if strings.Contains(model, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return ModelPricing{}, false
	}
	return ModelPricingMap[best], true
}

// ApplyCost fills in the costs of usage for model. Unknown models cost zero.
func ApplyCost(model string, usage *llmtypes.Usage) {
	pricing, ok := PricingFor(model)
	if !ok {
		return
	}

	inputTokens := usage.InputTokens + usage.CacheReadInputTokens
	inputRate, outputRate := pricing.Input, pricing.Output
	if pricing.TieredPricing && inputTokens > pricing.HighTierThreshold {
		inputRate, outputRate = pricing.InputHigh, pricing.OutputHigh
	}

	usage.InputCost = float64(usage.InputTokens) * inputRate / 1_000_000
	usage.CacheReadCost = float64(usage.CacheReadInputTokens) * inputRate / 4 / 1_000_000
	usage.OutputCost = float64(usage.OutputTokens) * outputRate / 1_000_000
}
