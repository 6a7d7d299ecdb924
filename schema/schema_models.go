package schema

import "time"

// ModelDescriptor describes one text-generation model in the catalog.
// Prices are per million tokens; RateLimit is requests per minute (0 = unknown).
type ModelDescriptor struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Provider      string   `json:"provider"`
	IsFree        bool     `json:"is_free"`
	Recommended   bool     `json:"recommended"`
	ContextLength int      `json:"context_length"`
	InputPrice    float64  `json:"input_price"`
	OutputPrice   float64  `json:"output_price"`
	RateLimit     int      `json:"rate_limit,omitempty"`
	Features      []string `json:"features,omitempty"`
}

// ModelConfig selects which models the generation client may use.
type ModelConfig struct {
	Primary  string   `json:"primary"`
	Fallback string   `json:"fallback"`
	Enabled  []string `json:"enabled"`
}

// ModelConfigVersion is one persisted revision of the model config.
// Version 0 is the built-in default that was never saved.
type ModelConfigVersion struct {
	ModelConfig
	Version   int64     `json:"version"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
