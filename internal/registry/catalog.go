package registry

import "github.com/gitlegend/gitlegend/schema"

// freeModels are served at no cost and carry per-minute rate limits.
var freeModels = []schema.ModelDescriptor{
	{
		ID:            "deepseek/deepseek-r1:free",
		Name:          "DeepSeek R1 (Free)",
		Provider:      "DeepSeek",
		IsFree:        true,
		Recommended:   true,
		ContextLength: 64000,
		RateLimit:     20,
		Features:      []string{"reasoning", "open-source", "large-context"},
	},
	{
		ID:            "deepseek/deepseek-chat:free",
		Name:          "DeepSeek V3 (Free)",
		Provider:      "DeepSeek",
		IsFree:        true,
		Recommended:   true,
		ContextLength: 64000,
		RateLimit:     30,
		Features:      []string{"coding", "instruction-following", "multilingual"},
	},
	{
		ID:            "moonshot/moonshot-v1-8k:free",
		Name:          "Moonshot V1 8K (Free)",
		Provider:      "Moonshot AI",
		IsFree:        true,
		Recommended:   true,
		ContextLength: 8192,
		RateLimit:     25,
		Features:      []string{"chinese", "reasoning", "multilingual"},
	},
	{
		ID:            "google/gemma-2-9b-it:free",
		Name:          "Gemma 2 9B IT (Free)",
		Provider:      "Google",
		IsFree:        true,
		ContextLength: 8192,
		RateLimit:     30,
		Features:      []string{"instruction-tuned", "creative", "coding"},
	},
	{
		ID:            "meta-llama/llama-3.1-8b-instruct:free",
		Name:          "Llama 3.1 8B Instruct (Free)",
		Provider:      "Meta",
		IsFree:        true,
		ContextLength: 128000,
		RateLimit:     30,
		Features:      []string{"open-source", "large-context", "multilingual"},
	},
	{
		ID:            "microsoft/phi-3-medium-128k-instruct:free",
		Name:          "Phi-3 Medium 128K (Free)",
		Provider:      "Microsoft",
		IsFree:        true,
		ContextLength: 128000,
		RateLimit:     25,
		Features:      []string{"large-context", "compact", "analysis"},
	},
	{
		ID:            "qwen/qwq-32b-preview:free",
		Name:          "QwQ 32B Preview (Free)",
		Provider:      "Qwen",
		IsFree:        true,
		ContextLength: 32000,
		RateLimit:     20,
		Features:      []string{"reasoning", "problem-solving", "preview"},
	},
}

// premiumModels are billed per token.
var premiumModels = []schema.ModelDescriptor{
	{
		ID:            "openai/gpt-4o-mini",
		Name:          "GPT-4o Mini",
		Provider:      "OpenAI",
		Recommended:   true,
		ContextLength: 128000,
		InputPrice:    0.15,
		OutputPrice:   0.6,
		Features:      []string{"cost-effective", "versatile", "large-context"},
	},
	{
		ID:            "anthropic/claude-3-haiku",
		Name:          "Claude 3 Haiku",
		Provider:      "Anthropic",
		Recommended:   true,
		ContextLength: 200000,
		InputPrice:    0.25,
		OutputPrice:   1.25,
		Features:      []string{"fast", "analysis", "summarization"},
	},
}

// defaultEnabledCount is how many free models the default config enables.
const defaultEnabledCount = 5
