package openai

import "strings"

// ModelPricing holds the per-token pricing of a model
type ModelPricing struct {
	Input         float64
	CachedInput   float64
	Output        float64
	ContextWindow int
}

// Preset describes an OpenAI-compatible provider
type Preset struct {
	BaseURL   string
	APIKeyEnv string
	// Reasoning models take max_completion_tokens instead of max_tokens
	Reasoning []string
	Pricing   map[string]ModelPricing
}

// Presets are the built-in OpenAI-compatible providers
var Presets = map[string]Preset{
	"openai": {
		BaseURL:   "https://api.openai.com/v1",
		APIKeyEnv: "OPENAI_API_KEY",
		Reasoning: []string{"o1", "o1-pro", "o1-mini", "o3", "o3-pro", "o3-mini", "o4-mini", "gpt-5", "gpt-5-mini", "gpt-5-nano"},
		Pricing: map[string]ModelPricing{
			"gpt-4.1": {
				Input:         0.000002,  // $2.00 per million tokens
				CachedInput:   0.0000005, // $0.50 per million tokens
				Output:        0.000008,  // $8.00 per million tokens
				ContextWindow: 1047576,
			},
			"gpt-4.1-mini": {
				Input:         0.0000004, // $0.40 per million tokens
				CachedInput:   0.0000001, // $0.10 per million tokens
				Output:        0.0000016, // $1.60 per million tokens
				ContextWindow: 1047576,
			},
			"gpt-4o": {
				Input:         0.0000025,  // $2.50 per million tokens
				CachedInput:   0.00000125, // $1.25 per million tokens
				Output:        0.00001,    // $10.00 per million tokens
				ContextWindow: 128_000,
			},
			"gpt-4o-mini": {
				Input:         0.00000015,  // $0.15 per million tokens
				CachedInput:   0.000000075, // $0.075 per million tokens
				Output:        0.0000006,   // $0.60 per million tokens
				ContextWindow: 128_000,
			},
			"o3": {
				Input:         0.000002,
				CachedInput:   0.0000005,
				Output:        0.000008,
				ContextWindow: 200_000,
			},
			"o4-mini": {
				Input:         0.0000011,   // $1.10 per million tokens
				CachedInput:   0.000000275, // $0.275 per million tokens
				Output:        0.0000044,   // $4.40 per million tokens
				ContextWindow: 200_000,
			},
		},
	},
	"xai": {
		BaseURL:   "https://api.x.ai/v1",
		APIKeyEnv: "XAI_API_KEY",
		Reasoning: []string{"grok-code-fast-1", "grok-4-0709", "grok-3-mini"},
		Pricing: map[string]ModelPricing{
			"grok-code-fast-1": {
				Input:         0.0000002, // $0.20 per million tokens
				Output:        0.0000015, // $1.50 per million tokens
				ContextWindow: 256000,
			},
			"grok-4-0709": {
				Input:         0.000003, // $3 per million tokens
				Output:        0.000015, // $15 per million tokens
				ContextWindow: 256000,
			},
			"grok-3-mini": {
				Input:         0.0000003, // $0.30 per million tokens
				Output:        0.0000005, // $0.50 per million tokens
				ContextWindow: 131072,
			},
		},
	},
	"groq": {
		BaseURL:   "https://api.groq.com/openai/v1",
		APIKeyEnv: "GROQ_API_KEY",
		Reasoning: []string{"deepseek-r1-distill-llama-70b", "qwen/qwen3-32b"},
		Pricing: map[string]ModelPricing{
			"llama-3.3-70b-versatile": {
				Input:         0.00000059, // $0.59 per million tokens
				Output:        0.00000079, // $0.79 per million tokens
				ContextWindow: 131072,
			},
			"llama-3.1-8b-instant": {
				Input:         0.00000005, // $0.05 per million tokens
				Output:        0.00000008, // $0.08 per million tokens
				ContextWindow: 131072,
			},
		},
	},
}

// PresetFor returns the named preset, defaulting to openai
func PresetFor(name string) (Preset, bool) {
	if name == "" {
		name = "openai"
	}
	preset, ok := Presets[strings.ToLower(name)]
	return preset, ok
}

// IsReasoning reports whether model takes max_completion_tokens
func (p Preset) IsReasoning(model string) bool {
	for _, m := range p.Reasoning {
		if m == model {
			return true
		}
	}
	return false
}

// PricingFor looks up the pricing of model, matching dated snapshots such as
// gpt-4.1-2025-04-14 by their longest known prefix.
func (p Preset) PricingFor(model string) (ModelPricing, bool) {
	if pricing, ok := p.Pricing[model]; ok {
		return pricing, true
	}
	best := ""
	for name := range p.Pricing {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return ModelPricing{}, false
	}
	return p.Pricing[best], true
}
